// Package archivetest builds attributedBody blobs the way the Messages client writes them.
package archivetest

import (
	"bytes"
	"encoding/binary"

	"howett.net/plist"
)

// HelloWorld is a captured typedstream attributedBody for "Hello world", hex encoded.
const HelloWorld = "040b73747265616d747970656481e803840140848484124e5341747472696275" +
	"746564537472696e67008484084e534f626a656374008592848484084e535374" +
	"72696e67019484012b0b48656c6c6f20776f726c648684026949010b92848484" +
	"0c4e5344696374696f6e617279009484016901928496961d5f5f6b494d4d6573" +
	"73616765506172744174747269627574654e616d658692848484084e534e756d" +
	"626572008484074e5356616c7565009484012a84999900868686"

// TypedStream returns a little-endian typedstream attributed string carrying text.
func TypedStream(text string) []byte {
	return Build("streamtyped", binary.LittleEndian, []byte(text))
}

// Build returns a typedstream with the given signature and byte order whose
// NSString holds raw, with a message-part attribute over the whole string.
func Build(signature string, order binary.ByteOrder, raw []byte) []byte {
	b := attributedPrefix(signature, order, raw)
	b.Write([]byte{0x92, 0x84, 0x96, 0x96, 0x1d})
	b.WriteString(messagePartKey)
	b.Write([]byte{0x86, 0x92, 0x84, 0x84, 0x84, 0x08})
	b.WriteString("NSNumber")
	b.Write([]byte{0x00, 0x84, 0x84, 0x07})
	b.WriteString("NSValue")
	b.Write([]byte{0x00, 0x94, 0x84, 0x01, '*', 0x84, 0x99, 0x99, 0x00, 0x86, 0x86, 0x86})
	return b.Bytes()
}

// Attachment returns a little-endian typedstream whose NSString holds text and
// whose attribute dictionary maps the file transfer key to guid, the way an
// inline attachment is archived.
func Attachment(text, guid string) []byte {
	order := binary.LittleEndian
	b := attributedPrefix("streamtyped", order, []byte(text))
	for _, s := range []string{fileTransferKey, guid} {
		b.Write([]byte{0x92, 0x84, 0x96, 0x96})
		writeLength(b, order, len(s))
		b.WriteString(s)
		b.WriteByte(0x86)
	}
	b.Write([]byte{0x86, 0x86})
	return b.Bytes()
}

const (
	messagePartKey  = "__kIMMessagePartAttributeName"
	fileTransferKey = "__kIMFileTransferGUIDAttributeName"
)

// attributedPrefix writes the header, the NSString payload, the attribute run
// and the opening of a one-entry NSDictionary.
func attributedPrefix(signature string, order binary.ByteOrder, raw []byte) *bytes.Buffer {
	var b bytes.Buffer
	b.Write([]byte{0x04, byte(len(signature))})
	b.WriteString(signature)
	b.WriteByte(0x81)
	_ = binary.Write(&b, order, uint16(1000))

	b.Write([]byte{0x84, 0x01, '@'})
	b.Write([]byte{0x84, 0x84, 0x84, 0x12})
	b.WriteString("NSAttributedString")
	b.Write([]byte{0x00, 0x84, 0x84, 0x08})
	b.WriteString("NSObject")
	b.Write([]byte{0x00, 0x85})

	b.Write([]byte{0x92, 0x84, 0x84, 0x84, 0x08})
	b.WriteString("NSString")
	b.Write([]byte{0x01, 0x94, 0x84, 0x01, '+'})
	writeLength(&b, order, len(raw))
	b.Write(raw)
	b.WriteByte(0x86)

	b.Write([]byte{0x84, 0x02, 'i', 'I', 0x01})
	writeLength(&b, order, len(raw))
	b.Write([]byte{0x92, 0x84, 0x84, 0x84, 0x0c})
	b.WriteString("NSDictionary")
	b.Write([]byte{0x00, 0x94, 0x84, 0x01, 'i', 0x01})
	return &b
}

func writeLength(b *bytes.Buffer, order binary.ByteOrder, n int) {
	switch {
	case n < 0x80:
		b.WriteByte(byte(n))
	case n <= 0xFFFF:
		b.WriteByte(0x81)
		_ = binary.Write(b, order, uint16(n))
	default:
		b.WriteByte(0x82)
		_ = binary.Write(b, order, uint32(n))
	}
}

// Keyed returns an NSKeyedArchiver binary plist for an attributed string.
func Keyed(text string) ([]byte, error) {
	return keyed(text, messagePartKey, 0)
}

// KeyedAttachment is Keyed with the file transfer attribute set to guid.
func KeyedAttachment(text, guid string) ([]byte, error) {
	return keyed(text, fileTransferKey, guid)
}

func keyed(text, attrKey string, attrValue any) ([]byte, error) {
	doc := map[string]any{
		"$archiver": "NSKeyedArchiver",
		"$version":  100000,
		"$top":      map[string]any{"root": plist.UID(1)},
		"$objects": []any{
			"$null",
			map[string]any{"NSString": plist.UID(2), "NSAttributes": plist.UID(3), "$class": plist.UID(5)},
			map[string]any{"NS.string": text, "$class": plist.UID(4)},
			map[string]any{"NS.keys": []any{plist.UID(6)}, "NS.objects": []any{plist.UID(7)}},
			map[string]any{"$classname": "NSMutableString", "$classes": []any{"NSMutableString", "NSString", "NSObject"}},
			map[string]any{"$classname": "NSAttributedString", "$classes": []any{"NSAttributedString", "NSObject"}},
			attrKey,
			attrValue,
		},
	}
	return plist.Marshal(doc, plist.BinaryFormat)
}
