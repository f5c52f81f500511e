package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

var errNotObject = errors.New("item payload must be a JSON object")

// FindItem returns the first item whose id equals rawID. A non-numeric rawID
// is reported exactly like a missing item.
func FindItem(items []Item, rawID string) (Item, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Item{}, ErrItemNotFound
	}
	for _, it := range items {
		if got, ok := it.numericID(); ok && got == id {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

// ValidateNewItem checks a creation payload and decodes it. Unknown fields are
// kept; any client-supplied id is discarded.
func ValidateNewItem(body []byte) (Item, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return Item{}, errNotObject
	}

	name, ok := decodeString(bytes.TrimSpace(raw[fieldName]))
	if !ok || name == "" {
		return Item{}, errNameRequired
	}
	if p, present := raw[fieldPrice]; present {
		if _, ok := decodeNumber(p); !ok {
			return Item{}, errPriceNotFloat
		}
	}

	var it Item
	if err := json.Unmarshal(body, &it); err != nil {
		return Item{}, errNotObject
	}
	it.ID = 0
	delete(it.Extra, fieldID)
	if len(it.Extra) == 0 {
		it.Extra = nil
	}
	return it, nil
}

// AppendItem assigns a fresh id to it and persists the collection with it
// appended. Callers sharing a store must serialise calls themselves.
func AppendItem(ctx context.Context, store Store, ids *IDGenerator, it Item) (Item, error) {
	items, err := store.Load(ctx)
	if err != nil {
		return Item{}, fmt.Errorf("load items: %w", err)
	}

	it.ID = ids.NextAfter(items)
	items = append(items, it)

	if err := store.Save(ctx, items); err != nil {
		return Item{}, fmt.Errorf("save items: %w", err)
	}
	return it, nil
}

// IDGenerator hands out millisecond timestamps, bumped so that every id is
// strictly greater than the previous one even within the same millisecond.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() int64 {
	now := g.clock().UnixMilli()
	for {
		last := g.last.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// NextAfter returns an id not present in items.
func (g *IDGenerator) NextAfter(items []Item) int64 {
	taken := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if id, ok := it.numericID(); ok {
			taken[id] = struct{}{}
		}
	}
	for {
		id := g.Next()
		if _, dup := taken[id]; !dup {
			return id
		}
	}
}

func (g *IDGenerator) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}
