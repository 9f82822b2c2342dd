package tracker

// Extractor reads custom fields off a resolved element.
type Extractor struct {
	scheme *AttributeScheme
}

// NewExtractor creates an extractor for scheme (nil selects the default scheme).
func NewExtractor(scheme *AttributeScheme) *Extractor {
	if scheme == nil {
		scheme = DefaultAttributeScheme()
	}
	return &Extractor{scheme: scheme}
}

// Extract maps field attributes to custom fields, dropping empty values, and adds
// form (formAction/formId/formMethod) or anchor (anchorHref/anchorId) extras.
// Params: node resolved element.
// Returns: field mapping, never nil.
func (e *Extractor) Extract(node Node) map[string]string {
	fields := make(map[string]string)
	for _, attr := range node.Attributes() {
		if attr.Value == "" {
			continue
		}
		name, ok := e.scheme.FieldName(attr.Name)
		if !ok {
			continue
		}
		fields[name] = attr.Value
	}

	if form, ok := node.(FormElement); ok {
		fields["formAction"] = form.Action()
		fields["formId"] = form.ID()
		fields["formMethod"] = form.Method()
	}
	if anchor, ok := node.(AnchorElement); ok {
		fields["anchorHref"] = anchor.Href()
		fields["anchorId"] = anchor.ID()
	}
	return fields
}
