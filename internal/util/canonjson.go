package util

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CanonicalJSON encodes value with object keys sorted at every depth, so
// the same content always produces the same bytes. Output is indented
// with two spaces when indent is true.
func CanonicalJSON(value any) ([]byte, error) {
	return canonical(value, true)
}

// CompactCanonicalJSON is CanonicalJSON without indentation; used for hashing.
func CompactCanonicalJSON(value any) ([]byte, error) {
	return canonical(value, false)
}

func canonical(value any, indent bool) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := writeSorted(buf, decoded); err != nil {
		return nil, err
	}
	if !indent {
		return buf.Bytes(), nil
	}
	out := &bytes.Buffer{}
	if err := json.Indent(out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeSorted(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeSorted(buf, v[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeSorted(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, v)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
