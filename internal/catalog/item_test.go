package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_UnmarshalKnownAndExtraFields(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{
		"id": 1700000000000,
		"name": "Desk Lamp",
		"price": 24.5,
		"category": "Home",
		"description": "Warm light",
		"tags": ["a", "b"],
		"stock": 3
	}`), &it)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000000), it.ID)
	assert.Equal(t, "Desk Lamp", it.Name)
	require.NotNil(t, it.Price)
	assert.Equal(t, 24.5, *it.Price)
	assert.Equal(t, "Home", it.Category)
	assert.Equal(t, "Warm light", it.Description)
	assert.JSONEq(t, `["a","b"]`, string(it.Extra["tags"]))
	assert.JSONEq(t, `3`, string(it.Extra["stock"]))
}

func TestItem_UnexpectedTypesArePreserved(t *testing.T) {
	in := `{"id":7,"name":123,"price":"cheap","category":{"x":1}}`

	var it Item
	require.NoError(t, json.Unmarshal([]byte(in), &it))

	assert.Equal(t, int64(7), it.ID)
	assert.Empty(t, it.Name)
	assert.Nil(t, it.Price)
	assert.Empty(t, it.Category)

	out, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestItem_QuotedNumberIsNotAPrice(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"x","price":"5"}`), &it))

	assert.Nil(t, it.Price)
	assert.JSONEq(t, `"5"`, string(it.Extra["price"]))
}

func TestItem_MarshalOrdersIDAndNameFirst(t *testing.T) {
	it := Item{
		ID:       3,
		Name:     "Chair",
		Price:    price(49.99),
		Category: "Furniture",
		Extra:    map[string]json.RawMessage{"color": json.RawMessage(`"red"`)},
	}

	out, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"name":"Chair","category":"Furniture","color":"red","price":49.99}`, string(out))
}

func TestItem_LargeIDRoundTrip(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":9007199254740993,"name":"big"}`), &it))
	assert.Equal(t, int64(9007199254740993), it.ID)
}

func TestItem_StatsPrice(t *testing.T) {
	tests := map[string]struct {
		doc   string
		want  float64
		count bool
	}{
		"number":       {doc: `{"price": 12.5}`, want: 12.5, count: true},
		"zero":         {doc: `{"price": 0}`, want: 0, count: true},
		"missing":      {doc: `{}`, want: 0, count: true},
		"null":         {doc: `{"price": null}`, want: 0, count: true},
		"false":        {doc: `{"price": false}`, want: 0, count: true},
		"empty string": {doc: `{"price": ""}`, want: 0, count: true},
		"string":       {doc: `{"price": "abc"}`, count: false},
		"true":         {doc: `{"price": true}`, count: false},
		"object":       {doc: `{"price": {}}`, count: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var it Item
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &it))

			got, ok := it.statsPrice()
			assert.Equal(t, tt.count, ok)
			if tt.count {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCloneItems_Deep(t *testing.T) {
	orig := []Item{{
		ID:    1,
		Name:  "a",
		Price: price(1),
		Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)},
	}}

	c := cloneItems(orig)
	*c[0].Price = 2
	c[0].Extra["k"] = json.RawMessage(`2`)

	assert.Equal(t, 1.0, *orig[0].Price)
	assert.Equal(t, `1`, string(orig[0].Extra["k"]))
}

func TestItem_IrregularRecordsSurviveRoundTrip(t *testing.T) {
	tests := map[string]string{
		"string id":        `{"id":"sku-7","name":"A"}`,
		"missing id":       `{"name":"NoID"}`,
		"zero id":          `{"id":0,"name":"Zero"}`,
		"empty name":       `{"id":1,"name":""}`,
		"empty category":   `{"id":2,"name":"x","category":""}`,
		"empty desc":       `{"id":3,"name":"x","description":""}`,
		"fractional id":    `{"id":1.5,"name":"half"}`,
		"null id and name": `{"id":null,"name":null}`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			var it Item
			require.NoError(t, json.Unmarshal([]byte(in), &it))

			out, err := json.Marshal(it)
			require.NoError(t, err)
			assert.JSONEq(t, in, string(out))
		})
	}
}

func TestItem_NumericID(t *testing.T) {
	tests := map[string]struct {
		doc  string
		want int64
		ok   bool
	}{
		"typed":   {doc: `{"id":5}`, want: 5, ok: true},
		"zero":    {doc: `{"id":0}`, want: 0, ok: true},
		"string":  {doc: `{"id":"sku-7"}`},
		"missing": {doc: `{}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var it Item
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &it))

			got, ok := it.numericID()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
