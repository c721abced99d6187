package archive

import (
	"fmt"
	"regexp"

	"howett.net/plist"
)

// keyedArchive is the envelope NSKeyedArchiver writes: a flat object table
// whose entries point at each other through UIDs.
type keyedArchive struct {
	Archiver string         `plist:"$archiver"`
	Top      map[string]any `plist:"$top"`
	Objects  []any          `plist:"$objects"`
}

// stringKeys are the dictionary keys under which an attributed or mutable
// string keeps its characters.
var stringKeys = []string{"NSString", "NS.string", "NS.bytes"}

// Strings in the object table that belong to the archive's structure rather
// than to the message: attribute keys, file transfer GUIDs, class names.
var (
	attributeKeyRe = regexp.MustCompile(`^__k[A-Za-z]+AttributeName$`)
	transferGUIDRe = regexp.MustCompile(`^at_\d+_[0-9A-Fa-f-]{36}$`)
	classNameRe    = regexp.MustCompile(`^NS[A-Z][A-Za-z]*$`)
)

func (d *Decoder) decodeKeyed(blob []byte) (string, error) {
	var ka keyedArchive
	if _, err := plist.Unmarshal(blob, &ka); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTruncatedArchive, err)
	}
	if len(ka.Objects) == 0 {
		return "", ErrNoTextFound
	}

	if root, ok := ka.Top["root"]; ok {
		if payload, ok := keyedPayload(ka.Objects, ka.resolve(root)); ok {
			if text, ok := d.qualify(payload); ok {
				return text, nil
			}
			return "", ErrNoTextFound
		}
	}

	// No attributed string at the root: take the first string in the table
	// that is not part of the archive's structure. Index 0 is the $null sentinel.
	for _, obj := range ka.Objects[1:] {
		s, ok := obj.(string)
		if !ok || structural(s) {
			continue
		}
		if text, ok := d.qualify([]byte(s)); ok {
			return text, nil
		}
	}
	return "", ErrNoTextFound
}

// keyedPayload follows string keys from obj down to the string they hold.
func keyedPayload(objects []any, obj any) ([]byte, bool) {
	for range 4 {
		switch v := obj.(type) {
		case string:
			return []byte(v), true
		case []byte:
			return v, true
		case map[string]any:
			next, ok := firstKey(v, stringKeys)
			if !ok {
				return nil, false
			}
			obj = resolveUID(objects, next)
		default:
			return nil, false
		}
	}
	return nil, false
}

func structural(s string) bool {
	return s == "$null" || attributeKeyRe.MatchString(s) || transferGUIDRe.MatchString(s) || classNameRe.MatchString(s)
}

func (ka *keyedArchive) resolve(v any) any {
	return resolveUID(ka.Objects, v)
}

func resolveUID(objects []any, v any) any {
	uid, ok := v.(plist.UID)
	if !ok {
		return v
	}
	if uint64(uid) >= uint64(len(objects)) {
		return nil
	}
	return objects[uid]
}

func firstKey(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}
