package scene

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

// modelled lists the top-level members decoded into typed fields.
var modelled = map[string]struct{}{
	"asset":       {},
	"scene":       {},
	"scenes":      {},
	"nodes":       {},
	"meshes":      {},
	"accessors":   {},
	"bufferViews": {},
	"buffers":     {},
}

// Marshal serialises doc to compact JSON.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	return json.Marshal(doc)
}

// Unmarshal parses a JSON scene descriptor. The returned document does not
// reference data.
func Unmarshal(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("scene: descriptor is not a JSON object")
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	out, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(d.Extras))
	for k := range d.Extras {
		if _, ok := modelled[k]; !ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return out, nil
	}
	slices.Sort(keys)

	// "asset" is always written, so the object already has a member.
	var buf bytes.Buffer
	buf.Grow(len(out) + 64*len(keys))
	buf.Write(out[:len(out)-1])
	var member bytes.Buffer
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		// goccy Compact re-emits what dst already holds; give it an empty one.
		member.Reset()
		if err := json.Compact(&member, d.Extras[k]); err != nil {
			return nil, fmt.Errorf("scene: member %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(member.Bytes())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	for k, v := range members {
		if _, ok := modelled[k]; ok {
			continue
		}
		if p.Extras == nil {
			p.Extras = make(map[string]json.RawMessage)
		}
		p.Extras[k] = bytes.Clone(v)
	}
	*d = Document(p)
	return nil
}
