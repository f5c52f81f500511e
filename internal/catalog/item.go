package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

const (
	fieldID          = "id"
	fieldName        = "name"
	fieldPrice       = "price"
	fieldCategory    = "category"
	fieldDescription = "description"
)

// Item is a catalog record. The well-known fields are decoded into typed
// fields; every other key, and any well-known key whose stored value has an
// unexpected type, is kept verbatim in Extra so nothing is lost on save.
//
// ID 0 means "no typed id": a record stored without an id, with a
// non-integer id, or with an id of 0 keeps whatever it had (possibly nothing)
// through Extra. Empty strings in name, category and description are kept in
// Extra the same way, so the typed fields are only set when non-empty.
type Item struct {
	ID          int64
	Name        string
	Price       *float64
	Category    string
	Description string

	Extra map[string]json.RawMessage
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		// literal null
		*it = Item{}
		return nil
	}

	out := Item{}
	for k, v := range raw {
		switch k {
		case fieldID:
			if id, ok := decodeInt(v); ok && id != 0 {
				out.ID = id
				continue
			}
		case fieldName:
			if s, ok := decodeString(v); ok && s != "" {
				out.Name = s
				continue
			}
		case fieldPrice:
			if f, ok := decodeNumber(v); ok {
				out.Price = &f
				continue
			}
		case fieldCategory:
			if s, ok := decodeString(v); ok && s != "" {
				out.Category = s
				continue
			}
		case fieldDescription:
			if s, ok := decodeString(v); ok && s != "" {
				out.Description = s
				continue
			}
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}

	*it = out
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(it.Extra)+5)
	for k, v := range it.Extra {
		m[k] = v
	}

	set := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m[k] = b
		return nil
	}

	if it.ID != 0 {
		if err := set(fieldID, it.ID); err != nil {
			return nil, err
		}
	}
	if it.Name != "" {
		if err := set(fieldName, it.Name); err != nil {
			return nil, err
		}
	}
	if it.Price != nil {
		if err := set(fieldPrice, *it.Price); err != nil {
			return nil, err
		}
	}
	if it.Category != "" {
		if err := set(fieldCategory, it.Category); err != nil {
			return nil, err
		}
	}
	if it.Description != "" {
		if err := set(fieldDescription, it.Description); err != nil {
			return nil, err
		}
	}

	return marshalOrdered(m)
}

// marshalOrdered writes id and name first, then the remaining keys sorted,
// which keeps the stored document readable and diffs stable.
func marshalOrdered(m map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == fieldID || k == fieldName {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lead := make([]string, 0, 2)
	for _, k := range []string{fieldID, fieldName} {
		if _, ok := m[k]; ok {
			lead = append(lead, k)
		}
	}
	keys = append(lead, keys...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(m[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// numericID returns the id the item answers to in lookups. Records stored
// without an integer id have none.
func (it Item) numericID() (int64, bool) {
	if it.ID != 0 {
		return it.ID, true
	}
	if raw, ok := it.Extra[fieldID]; ok {
		return decodeInt(raw)
	}
	return 0, false
}

// statsPrice reports the value an item contributes to averagePrice.
// Numbers count as themselves; a missing or falsy price (null, false, 0, "")
// counts as zero; any other non-numeric value is left out of the mean.
func (it Item) statsPrice() (float64, bool) {
	if it.Price != nil {
		return *it.Price, true
	}
	raw, ok := it.Extra[fieldPrice]
	if !ok {
		return 0, true
	}
	switch string(bytes.TrimSpace(raw)) {
	case "null", "false", `""`:
		return 0, true
	}
	return 0, false
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeJSONNumber(raw json.RawMessage) (json.Number, bool) {
	raw = bytes.TrimSpace(raw)
	// json.Number also accepts quoted numbers; only bare literals count.
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n, true
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	n, ok := decodeJSONNumber(raw)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func decodeInt(raw json.RawMessage) (int64, bool) {
	n, ok := decodeJSONNumber(raw)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

func (it Item) clone() Item {
	c := it
	if it.Price != nil {
		p := *it.Price
		c.Price = &p
	}
	if it.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(it.Extra))
		for k, v := range it.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}
