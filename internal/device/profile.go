// Package device classifies the capturing client once per session.
package device

import (
	"regexp"
	"strings"
)

const (
	compactPhotoLimit = 50 << 20
	desktopPhotoLimit = 700 << 20

	compactMaxEdge = 1280
	desktopMaxEdge = 1920
)

var mobileUA = regexp.MustCompile(`Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini|Mobile|mobile|CriOS`)

// Profile describes the input class of the capturing device.
// CompactInput covers phones and tablets.
type Profile struct {
	CompactInput bool
}

var (
	Mobile  = Profile{CompactInput: true}
	Desktop = Profile{CompactInput: false}
)

func (p Profile) PhotoSizeLimit() int64 {
	if p.CompactInput {
		return compactPhotoLimit
	}
	return desktopPhotoLimit
}

// MaxEdge is the longest side, in pixels, an optimized photo may keep.
func (p Profile) MaxEdge() int {
	if p.CompactInput {
		return compactMaxEdge
	}
	return desktopMaxEdge
}

func (p Profile) String() string {
	if p.CompactInput {
		return "mobile"
	}
	return "desktop"
}

func FromUserAgent(ua string) Profile {
	return Profile{CompactInput: mobileUA.MatchString(ua)}
}

// Parse accepts "mobile", "desktop" or "auto". Auto falls back to the
// user agent.
func Parse(name, ua string) Profile {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mobile", "compact":
		return Mobile
	case "desktop":
		return Desktop
	default:
		return FromUserAgent(ua)
	}
}
