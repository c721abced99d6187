package archive

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// qualify reports whether the payload raw holds message text, returning it
// cleaned. A payload that is blank once attachment markers are removed, or
// shorter than the minimum length, does not.
func (d *Decoder) qualify(raw []byte) (string, bool) {
	s := d.clean(decodeText(raw))
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) < d.minLength {
		return "", false
	}
	return s, true
}

// clean substitutes attachment markers and normalizes to NFC.
func (d *Decoder) clean(s string) string {
	if strings.ContainsRune(s, ObjectReplacement) {
		s = strings.ReplaceAll(s, string(ObjectReplacement), d.placeholder)
	}
	return norm.NFC.String(s)
}

// decodeText converts archived string bytes to UTF-8. UTF-16 is recognised by
// its byte order mark; bytes that are not valid UTF-8 are read as Mac OS Roman,
// the client's single-byte encoding.
func decodeText(raw []byte) string {
	if hasUTF16BOM(raw) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(raw); err == nil {
			return string(out)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}
	return string(out)
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && ((b[0] == 0xFE && b[1] == 0xFF) || (b[0] == 0xFF && b[1] == 0xFE))
}
