// internal/ua/ua.go
//
// User-Agent classification for the access log.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  Results are
// memoised in a small LRU: public pages are hit by the same few browser
// builds and crawlers, and uasurfer walks the whole string on every call.
package ua

import (
	"fmt"
	"strconv"

	surfer "github.com/avct/uasurfer"

	"github.com/yanizio/eventsite/internal/cache"
)

// Info carries the UA attributes logged per request.
//
// Example (Chrome on macOS):
//
//	Browser   "BrowserChrome"
//	Version   "125.0.6422"
//	OS        "OSMacOSX"
//	Device    "Desktop"
//	IsBot     false
//
// Device will be one of: "Desktop", "Mobile", "Tablet", or "Other".
type Info struct {
	Browser string
	Version string
	OS      string
	Device  string
	IsBot   bool
}

var memo = cache.New[string, Info](2048, 0)

// Parse converts a raw header into an Info struct.
func Parse(raw string) Info {
	if raw == "" {
		return Info{Device: "Other"}
	}
	if info, ok := memo.Get(raw); ok {
		return info
	}

	u := surfer.Parse(raw)
	info := Info{
		Browser: u.Browser.Name.String(),
		Version: versionToString(u.Browser.Version),
		OS:      u.OS.Name.String(),
		IsBot:   u.IsBot(),
	}
	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}

	memo.Add(raw, info)
	return info
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 -> "17", 17.3.0 -> "17.3".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
