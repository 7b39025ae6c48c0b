package domain

import "strings"

// Platform identifies the recruiting backend behind a career page. The set is closed.
type Platform string

const (
	PlatformSoftgarden     Platform = "softgarden"
	PlatformPersonio       Platform = "personio"
	PlatformRexx           Platform = "rexx"
	PlatformSuccessFactors Platform = "successfactors"
	PlatformXing           Platform = "xing"
	PlatformJSONLD         Platform = "jsonld"
	PlatformGenericHTML    Platform = "generic_html"
	PlatformUnknown        Platform = "unknown"
)

// Platforms lists every tag in classification priority order.
var Platforms = []Platform{
	PlatformSoftgarden,
	PlatformPersonio,
	PlatformRexx,
	PlatformSuccessFactors,
	PlatformXing,
	PlatformJSONLD,
	PlatformGenericHTML,
	PlatformUnknown,
}

func (p Platform) String() string { return string(p) }

func (p Platform) Valid() bool {
	for _, k := range Platforms {
		if k == p {
			return true
		}
	}
	return false
}

// HasAPI reports whether the platform exposes a structured job feed.
func (p Platform) HasAPI() bool {
	switch p {
	case PlatformSoftgarden, PlatformPersonio, PlatformRexx, PlatformSuccessFactors:
		return true
	default:
		return false
	}
}

// ParsePlatform maps stored values back to a tag; anything unrecognised is unknown.
func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PlatformUnknown
}
