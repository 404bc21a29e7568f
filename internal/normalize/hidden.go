package normalize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Hidden character kinds.
const (
	HiddenZeroWidth    = "zero-width"
	HiddenBidiOverride = "bidi-override"
	HiddenTagChar      = "tag-char"
	HiddenControlChar  = "control-char"
	HiddenInvalidUTF8  = "invalid-utf8"
	HiddenHomoglyph    = "homoglyph"
)

// HiddenChar is a character in an endpoint or key that renders differently
// from what is sent.
type HiddenChar struct {
	Kind        string
	Codepoint   string // e.g. "U+200B"
	Offset      int    // byte offset in the input
	Description string
}

// HiddenScan is the result of ScanHidden.
type HiddenScan struct {
	Found []HiddenChar

	// Sanitized has invisible characters removed and homoglyphs replaced
	// by the Latin letter they imitate.
	Sanitized string
}

// Clean reports whether nothing was found.
func (h HiddenScan) Clean() bool { return len(h.Found) == 0 }

// ScanHidden inspects s for invisible, direction-changing and look-alike
// characters.
func ScanHidden(s string) HiddenScan {
	var res HiddenScan
	var sanitized strings.Builder

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])

		if r == utf8.RuneError && size == 1 {
			res.Found = append(res.Found, HiddenChar{
				Kind:        HiddenInvalidUTF8,
				Codepoint:   fmt.Sprintf("0x%02X", s[i]),
				Offset:      i,
				Description: "invalid UTF-8 byte",
			})
			i++
			continue
		}

		cp := fmt.Sprintf("U+%04X", r)
		switch {
		case isZeroWidth(r):
			res.Found = append(res.Found, HiddenChar{HiddenZeroWidth, cp, i, "zero-width character " + cp + " is invisible when displayed"})
		case isBidiOverride(r):
			res.Found = append(res.Found, HiddenChar{HiddenBidiOverride, cp, i, "bidirectional override " + cp + " reorders displayed text"})
		case r >= 0xE0001 && r <= 0xE007F:
			res.Found = append(res.Found, HiddenChar{HiddenTagChar, cp, i, "tag character " + cp + " is invisible when displayed"})
		case isUnsafeControl(r):
			res.Found = append(res.Found, HiddenChar{HiddenControlChar, cp, i, "control character " + cp})
		default:
			if latin, ok := homoglyph(r); ok {
				res.Found = append(res.Found, HiddenChar{HiddenHomoglyph, cp, i, fmt.Sprintf("%s looks like Latin '%c'", cp, latin)})
				sanitized.WriteRune(latin)
			} else {
				sanitized.WriteRune(r)
			}
		}
		i += size
	}

	res.Sanitized = sanitized.String()
	return res
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE (BOM)
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F': // RIGHT-TO-LEFT MARK
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

// isUnsafeControl matches C0, DEL and C1 controls. Endpoints and keys have
// no use for tabs or newlines either.
func isUnsafeControl(r rune) bool {
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

func homoglyph(r rune) (rune, bool) {
	if unicode.Is(unicode.Cyrillic, r) {
		latin, ok := cyrillicHomoglyphs[r]
		return latin, ok
	}
	if unicode.Is(unicode.Greek, r) {
		latin, ok := greekHomoglyphs[r]
		return latin, ok
	}
	return 0, false
}

var cyrillicHomoglyphs = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'е': 'e', 'Е': 'E',
	'Н': 'H', 'і': 'i', 'І': 'I', 'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
}

var greekHomoglyphs = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y',
	'Ζ': 'Z',
}
