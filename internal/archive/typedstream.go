package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Typedstream tags. Any byte at or above tagRefBase is a back-reference.
const (
	tagInt16   = 0x81
	tagInt32   = 0x82
	tagFloat   = 0x83
	tagNew     = 0x84
	tagNil     = 0x85
	tagEnd     = 0x86
	tagRefBase = 0x92
)

// maxDepth bounds object nesting; attributed strings rarely go past four levels.
const maxDepth = 64

var errMalformed = errors.New("malformed typedstream")

// itemKind is the closed set of values a walk reports to its visitor.
type itemKind uint8

const (
	itemString itemKind = iota + 1
	itemClass
	itemInteger
	itemNil
)

type item struct {
	kind  itemKind
	bytes []byte
	n     int64
}

// streamReader walks a typedstream. Type encodings and class names are
// "shared strings": written once, then referenced by index.
type streamReader struct {
	buf    []byte
	pos    int
	order  binary.ByteOrder
	shared [][]byte
	depth  int
	visit  func(item) bool
	done   bool
}

func newStreamReader(buf []byte, visit func(item) bool) (*streamReader, error) {
	r := &streamReader{buf: buf, order: binary.LittleEndian, visit: visit}
	if _, err := r.readByte(); err != nil { // archiver version
		return nil, err
	}
	n, err := r.unsigned()
	if err != nil {
		return nil, err
	}
	sig, err := r.take(n)
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(sig, streamSignature):
	case bytes.Equal(sig, legacySignature):
		r.order = binary.BigEndian
	default:
		return nil, ErrUnrecognizedFormat
	}
	if _, err := r.integer(); err != nil { // system version, not interpreted
		return nil, err
	}
	return r, nil
}

// walk reads top-level groups until the buffer ends or the visitor stops it.
func (r *streamReader) walk() error {
	for r.pos < len(r.buf) && !r.done {
		if r.buf[r.pos] == tagEnd {
			r.pos++
			continue
		}
		if err := r.group(); err != nil {
			return err
		}
	}
	return nil
}

func (r *streamReader) emit(it item) {
	if r.visit != nil && !r.visit(it) {
		r.done = true
	}
}

// group reads one type encoding and then one value per type character.
func (r *streamReader) group() error {
	enc, err := r.sharedString()
	if err != nil {
		return err
	}
	if len(enc) == 0 {
		return fmt.Errorf("%w: empty type encoding at offset %d", errMalformed, r.pos)
	}
	for _, t := range enc {
		if r.done {
			return nil
		}
		if err := r.value(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *streamReader) value(t byte) error {
	switch t {
	case '@':
		return r.object()
	case '#':
		return r.classChain()
	case '+':
		n, err := r.unsigned()
		if err != nil {
			return err
		}
		b, err := r.take(n)
		if err != nil {
			return err
		}
		r.emit(item{kind: itemString, bytes: b})
		return nil
	case '*':
		return r.cString()
	case '%', ':':
		_, err := r.sharedString()
		return err
	case 'c', 'C', 's', 'S', 'i', 'I', 'l', 'L', 'q', 'Q', 'B':
		n, err := r.integer()
		if err != nil {
			return err
		}
		r.emit(item{kind: itemInteger, n: n})
		return nil
	case 'f':
		return r.float(4)
	case 'd':
		return r.float(8)
	case 'v':
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %q at offset %d", errMalformed, t, r.pos)
	}
}

func (r *streamReader) object() error {
	b, err := r.readByte()
	if err != nil {
		return err
	}
	switch {
	case b == tagNil:
		r.emit(item{kind: itemNil})
		return nil
	case b >= tagRefBase:
		return nil
	case b != tagNew:
		return fmt.Errorf("%w: unexpected tag %#x at offset %d", errMalformed, b, r.pos-1)
	}

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", errMalformed, maxDepth)
	}

	if err := r.classChain(); err != nil {
		return err
	}
	for !r.done {
		b, err := r.peek()
		if err != nil {
			return err
		}
		if b == tagEnd {
			r.pos++
			return nil
		}
		if err := r.group(); err != nil {
			return err
		}
	}
	return nil
}

// classChain reads a class and its superclasses, ending at nil or at a
// reference to a class already seen.
func (r *streamReader) classChain() error {
	for !r.done {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		switch {
		case b == tagNew:
			name, err := r.sharedString()
			if err != nil {
				return err
			}
			if _, err := r.integer(); err != nil { // class version
				return err
			}
			r.emit(item{kind: itemClass, bytes: name})
		case b == tagNil, b >= tagRefBase:
			return nil
		default:
			return fmt.Errorf("%w: unexpected tag %#x in class chain", errMalformed, b)
		}
	}
	return nil
}

func (r *streamReader) cString() error {
	b, err := r.readByte()
	if err != nil {
		return err
	}
	switch {
	case b == tagNil, b >= tagRefBase:
		return nil
	case b == tagNew:
		_, err := r.sharedString()
		return err
	default:
		return fmt.Errorf("%w: unexpected tag %#x for C string", errMalformed, b)
	}
}

func (r *streamReader) sharedString() ([]byte, error) {
	b, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b == tagNew:
		n, err := r.unsigned()
		if err != nil {
			return nil, err
		}
		s, err := r.take(n)
		if err != nil {
			return nil, err
		}
		r.shared = append(r.shared, s)
		return s, nil
	case b == tagNil:
		return nil, nil
	case b >= tagRefBase:
		idx := int(b - tagRefBase)
		if idx >= len(r.shared) {
			return nil, fmt.Errorf("%w: shared string reference %d of %d", errMalformed, idx, len(r.shared))
		}
		return r.shared[idx], nil
	default:
		return nil, fmt.Errorf("%w: unexpected tag %#x for shared string", errMalformed, b)
	}
}

func (r *streamReader) integer() (int64, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case tagInt16:
		v, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int64(int16(r.order.Uint16(v))), nil
	case tagInt32:
		v, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int64(int32(r.order.Uint32(v))), nil
	default:
		return int64(int8(b)), nil
	}
}

// unsigned reads a length. Single-byte lengths are unsigned, unlike integer values.
func (r *streamReader) unsigned() (int, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case tagInt16:
		v, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int(r.order.Uint16(v)), nil
	case tagInt32:
		v, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int(r.order.Uint32(v)), nil
	default:
		return int(b), nil
	}
}

func (r *streamReader) float(size int) error {
	b, err := r.peek()
	if err != nil {
		return err
	}
	if b != tagFloat {
		_, err := r.integer()
		return err
	}
	r.pos++
	_, err = r.take(size)
	return err
}

func (r *streamReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("%w: read at offset %d of %d", ErrTruncatedArchive, r.pos, len(r.buf))
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *streamReader) peek() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("%w: read at offset %d of %d", ErrTruncatedArchive, r.pos, len(r.buf))
	}
	return r.buf[r.pos], nil
}

func (r *streamReader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.pos {
		return nil, fmt.Errorf("%w: %d bytes at offset %d of %d", ErrTruncatedArchive, n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// decodeStream returns the first '+' string of the archive, which is the
// attributed string's character payload. Strings after it belong to the
// attribute dictionaries and are never message text.
func (d *Decoder) decodeStream(blob []byte) (string, error) {
	var (
		payload []byte
		found   bool
	)
	r, err := newStreamReader(blob, func(it item) bool {
		if it.kind != itemString {
			return true
		}
		payload, found = it.bytes, true
		return false
	})
	if err != nil {
		return "", err
	}

	err = r.walk()
	switch {
	case found:
		if text, ok := d.qualify(payload); ok {
			return text, nil
		}
		return "", ErrNoTextFound
	case err == nil:
		return "", ErrNoTextFound
	case errors.Is(err, ErrTruncatedArchive):
		return "", err
	default:
		return "", fmt.Errorf("%w: %v", ErrNoTextFound, err)
	}
}
