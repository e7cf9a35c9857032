// Package codec turns cache payloads into bytes and back.
//
// The cache wraps codec output in a JSON envelope. Codecs that already produce JSON
// text implement Textual so their output is embedded as-is instead of base64.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Textual is implemented by codecs whose Encode output is always valid JSON text.
type Textual interface {
	JSONText() bool
}

// IsTextual reports whether c declares JSON text output.
func IsTextual(c any) bool {
	t, ok := c.(Textual)
	return ok && t.JSONText()
}
