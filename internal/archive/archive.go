// Package archive recovers the plain text embedded in a serialized rich-text
// message body (the attributedBody column of chat.db).
//
// Two archive variants are understood: the legacy typedstream written by
// NSArchiver ("streamtyped" little-endian, "typedstream" big-endian) and the
// keyed binary property list written by NSKeyedArchiver ("bplist00").
package archive

import (
	"bytes"
	"errors"
)

var (
	// ErrUnrecognizedFormat is returned when the blob carries no known archive header.
	ErrUnrecognizedFormat = errors.New("archive: unrecognized format")
	// ErrTruncatedArchive is returned when a length-prefixed read runs past the buffer end.
	ErrTruncatedArchive = errors.New("archive: truncated")
	// ErrNoTextFound is returned when the archive was walked without locating message text.
	ErrNoTextFound = errors.New("archive: no text found")
)

// ObjectReplacement is the code point the client stores in place of an inline attachment.
const ObjectReplacement = '\uFFFC'

var (
	streamSignature     = []byte("streamtyped")
	legacySignature     = []byte("typedstream")
	keyedArchiveHeader  = []byte("bplist00")
	minStreamHeaderSize = 2 + len(streamSignature)
)

// Format identifies an archive variant.
type Format int

const (
	FormatUnknown Format = iota
	FormatTypedStream
	FormatKeyed
)

func (f Format) String() string {
	switch f {
	case FormatTypedStream:
		return "typedstream"
	case FormatKeyed:
		return "keyed"
	default:
		return "unknown"
	}
}

// Detect reports which archive variant blob is, judged by its header only.
func Detect(blob []byte) Format {
	switch {
	case bytes.HasPrefix(blob, keyedArchiveHeader):
		return FormatKeyed
	case len(blob) >= minStreamHeaderSize && int(blob[1]) == len(streamSignature) &&
		(bytes.Equal(blob[2:minStreamHeaderSize], streamSignature) ||
			bytes.Equal(blob[2:minStreamHeaderSize], legacySignature)):
		return FormatTypedStream
	default:
		return FormatUnknown
	}
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithPlaceholder sets the text substituted for inline attachment markers.
// The empty string (the default) removes them.
func WithPlaceholder(s string) Option {
	return func(d *Decoder) { d.placeholder = s }
}

// WithMinLength sets the minimum number of runes a string needs to count as message text.
func WithMinLength(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.minLength = n
		}
	}
}

// Decoder extracts message text from archived attributed strings.
// A Decoder holds no mutable state and is safe for concurrent use.
type Decoder struct {
	placeholder string
	minLength   int
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{minLength: 1}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode returns the plain text carried by blob, or one of ErrUnrecognizedFormat,
// ErrTruncatedArchive or ErrNoTextFound (possibly wrapped).
func (d *Decoder) Decode(blob []byte) (string, error) {
	switch Detect(blob) {
	case FormatTypedStream:
		return d.decodeStream(blob)
	case FormatKeyed:
		return d.decodeKeyed(blob)
	default:
		return "", ErrUnrecognizedFormat
	}
}
