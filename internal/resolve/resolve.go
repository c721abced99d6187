// Package resolve finds every handle that belongs to one contact.
package resolve

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/matheus3301/imsgx/internal/chatdb"
)

// DefaultMinSuffixDigits is the shortest digit run accepted as a phone-number suffix match.
const DefaultMinSuffixDigits = 7

// Resolver matches a search term against handle addresses.
type Resolver struct {
	minSuffix int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMinSuffixDigits sets how many digits a shorter candidate needs before a
// suffix match counts. Values below 1 are ignored.
func WithMinSuffixDigits(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minSuffix = n
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{minSuffix: DefaultMinSuffixDigits}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the handles whose address matches term, ranked by service and
// then row id. No match yields an empty slice.
func (r *Resolver) Resolve(handles []chatdb.Handle, term string) []chatdb.Handle {
	needle := NormalizeAddress(term)
	if needle == "" {
		return []chatdb.Handle{}
	}

	matched := []chatdb.Handle{}
	for _, h := range handles {
		if r.matches(NormalizeAddress(h.Address), needle) {
			matched = append(matched, h)
		}
	}
	Rank(matched)
	return matched
}

func (r *Resolver) matches(candidate, needle string) bool {
	if candidate == "" {
		return false
	}
	if strings.Contains(candidate, needle) {
		return true
	}
	// "5550100" stored for a contact searched as "+1 (555) 555-0100".
	return len(candidate) < len(needle) &&
		len(candidate) >= r.minSuffix &&
		isDigits(candidate) &&
		strings.HasSuffix(needle, candidate)
}

// Rank sorts handles in place: iMessage before RCS before SMS, then by row id.
func Rank(handles []chatdb.Handle) {
	slices.SortStableFunc(handles, func(a, b chatdb.Handle) int {
		if c := cmp.Compare(a.Service.Rank(), b.Service.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.RowID, b.RowID)
	})
}

// NormalizeAddress reduces an address to its comparable form. Emails and other
// addresses with letters are trimmed and lower-cased; phone numbers keep only digits.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "@") || strings.IndexFunc(addr, unicode.IsLetter) >= 0 {
		return strings.ToLower(addr)
	}
	var b strings.Builder
	for _, r := range addr {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Primary picks the handle used for reporting: the iMessage handle with the most
// messages, or the busiest handle when none is on iMessage. Ties keep the earlier
// handle. It returns false for an empty set.
func Primary(handles []chatdb.Handle) (chatdb.Handle, bool) {
	var best chatdb.Handle
	found := false
	for _, wantIMessage := range []bool{true, false} {
		for _, h := range handles {
			if wantIMessage && h.Service != chatdb.ServiceIMessage {
				continue
			}
			if !found || h.MessageCount > best.MessageCount {
				best, found = h, true
			}
		}
		if found {
			return best, true
		}
	}
	return best, false
}

// IDs returns the row ids of handles, in order.
func IDs(handles []chatdb.Handle) []int64 {
	ids := make([]int64, len(handles))
	for i, h := range handles {
		ids[i] = h.RowID
	}
	return ids
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
