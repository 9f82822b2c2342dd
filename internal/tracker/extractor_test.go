package tracker

import (
	"reflect"
	"testing"
)

func TestExtractorFields(t *testing.T) {
	node := el(nil,
		"data-report", "click",
		"data-report-label", "hero",
		"data-report-slot-id", "top",
		"data-report-empty", "",
		"class", "btn",
	)

	got := NewExtractor(nil).Extract(node)
	want := map[string]string{"label": "hero", "slotId": "top"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields: got=%v want=%v", got, want)
	}
}

func TestExtractorDropsEmptyValue(t *testing.T) {
	node := el(nil, "data-report", "click", "data-report-label", "")

	got := NewExtractor(nil).Extract(node)
	if _, ok := got["label"]; ok {
		t.Fatalf("empty attribute must not be reported: %v", got)
	}
	if len(got) != 0 {
		t.Fatalf("expected no fields, got=%v", got)
	}
}

func TestExtractorFormExtras(t *testing.T) {
	form := &fakeForm{
		fakeNode: fakeNode{attrs: []Attribute{{Name: "data-report", Value: "submit"}, {Name: "data-report-step", Value: "2"}}},
		action:   "https://shop.example/checkout",
		id:       "checkout",
		method:   "post",
	}

	got := NewExtractor(nil).Extract(form)
	want := map[string]string{
		"step":       "2",
		"formAction": "https://shop.example/checkout",
		"formId":     "checkout",
		"formMethod": "post",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields: got=%v want=%v", got, want)
	}
}

func TestExtractorAnchorExtras(t *testing.T) {
	anchor := &fakeAnchor{
		fakeNode: fakeNode{attrs: []Attribute{{Name: "data-report", Value: "click"}}},
		href:     "https://shop.example/sale",
		id:       "",
	}

	got := NewExtractor(nil).Extract(anchor)
	want := map[string]string{"anchorHref": "https://shop.example/sale", "anchorId": ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields: got=%v want=%v", got, want)
	}
}
