package dom

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// DefaultUserAgent builds a browser-style user agent from host facts.
// Params: ctx for the host lookup; version of the running build.
// Returns: user agent string; falls back to GOOS/GOARCH when host info is unavailable.
func DefaultUserAgent(ctx context.Context, version string) string {
	platform := runtime.GOOS
	arch := runtime.GOARCH

	info, err := host.InfoWithContext(ctx)
	if err == nil && info != nil {
		if name := strings.TrimSpace(info.Platform); name != "" {
			platform = name
			if release := strings.TrimSpace(info.PlatformVersion); release != "" {
				platform += " " + release
			}
		}
		if info.KernelArch != "" {
			arch = info.KernelArch
		}
	}

	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	return fmt.Sprintf("Mozilla/5.0 (%s; %s) hitbeacon/%s", platform, arch, version)
}
