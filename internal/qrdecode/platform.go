package qrdecode

import (
	"runtime"
	"strings"
)

// Platform selects a strategy order. Detection is a best-effort heuristic;
// anything unrecognised uses the default order.
type Platform string

const (
	PlatformDefault Platform = "default"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ProbeUserAgent guesses the uploading device from its User-Agent. iPadOS
// reports a desktop Safari UA, so a Macintosh UA with a Mobile token counts
// as iOS too.
func ProbeUserAgent(ua string) Platform {
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return PlatformIOS
	case strings.Contains(ua, "Macintosh") && strings.Contains(ua, "Mobile/"):
		return PlatformIOS
	case strings.Contains(ua, "Android"):
		return PlatformAndroid
	default:
		return PlatformDefault
	}
}

// ParsePlatform reads a configured platform. "auto" and "" probe the host.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ios":
		return PlatformIOS
	case "android":
		return PlatformAndroid
	case "", "auto":
		switch runtime.GOOS {
		case "ios":
			return PlatformIOS
		case "android":
			return PlatformAndroid
		}
	}
	return PlatformDefault
}
