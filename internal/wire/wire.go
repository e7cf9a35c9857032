package wire

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
)

var ErrCorrupt = errors.New("swrcache: corrupt entry")

// Entry is the decoded form of a stored cache entry.
//
// Stored shape (JSON text):
//
//	{"v":"<schema version>","t":<storedAt unix ms>,"p":<payload JSON>}
//	{"v":"<schema version>","t":<storedAt unix ms>,"b":"<payload base64>"}
//
// "p" is used when the payload is already JSON text (Inline), "b" otherwise.
type Entry struct {
	SchemaVersion string
	StoredAt      int64
	Payload       []byte
	Inline        bool
}

type envelope struct {
	V string          `json:"v"`
	T int64           `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
	B []byte          `json:"b,omitempty"`
}

func Encode(e Entry) ([]byte, error) {
	if e.SchemaVersion == "" {
		return nil, errors.New("swrcache: empty schema version")
	}
	env := envelope{V: e.SchemaVersion, T: e.StoredAt}
	switch {
	case e.Inline:
		if !json.Valid(e.Payload) {
			return nil, errors.New("swrcache: inline payload is not valid JSON")
		}
		env.P = json.RawMessage(e.Payload)
	default:
		// keep empty payloads distinguishable from a missing field
		env.B = e.Payload
		if env.B == nil {
			env.B = []byte{}
		}
	}
	return json.Marshal(env)
}

func Decode(b []byte) (Entry, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return Entry{}, ErrCorrupt
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return Entry{}, ErrCorrupt
	}
	_, hasP := raw["p"]
	_, hasB := raw["b"]
	if hasP == hasB {
		return Entry{}, ErrCorrupt
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Entry{}, ErrCorrupt
	}
	if env.V == "" || env.T <= 0 {
		return Entry{}, ErrCorrupt
	}
	out := Entry{SchemaVersion: env.V, StoredAt: env.T}
	if hasP {
		out.Payload = []byte(env.P)
		out.Inline = true
	} else {
		out.Payload = env.B
	}
	return out, nil
}
