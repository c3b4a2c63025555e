package i18n

const (
	LTR = "ltr"
	RTL = "rtl"
)

var rtlBases = map[string]struct{}{
	"ar": {},
	"he": {},
	"fa": {},
	"ur": {},
}

// Direction maps a locale code to its layout direction. Unknown or empty codes are ltr.
func Direction(lang string) string {
	if IsRTL(lang) {
		return RTL
	}
	return LTR
}

// IsRTL reports whether the primary subtag of lang is written right to left.
func IsRTL(lang string) bool {
	_, ok := rtlBases[Base(lang)]
	return ok
}
