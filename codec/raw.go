package codec

// Bytes is an identity codec for []byte values. Useful when the payload is already
// serialized upstream (for example a raw API response body).
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String is a trivial codec for Go string values. By convention this assumes UTF-8 and
// performs no validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }

// RawJSON passes through payloads that are already JSON documents, so they are stored
// inline in the entry envelope.
type RawJSON struct{}

func (RawJSON) Encode(b []byte) ([]byte, error) { return b, nil }
func (RawJSON) Decode(b []byte) ([]byte, error) { return b, nil }
func (RawJSON) JSONText() bool                  { return true }
