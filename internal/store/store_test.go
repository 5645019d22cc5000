package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/inventory/internal/kvstore"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

func mustItem(t *testing.T, name, category, qty, unit string) *types.Item {
	t.Helper()
	item, err := types.NewItem(name, category, decimal.RequireFromString(qty), unit)
	require.NoError(t, err)
	return item
}

// failingKV fails every Save and passes Load through.
type failingKV struct {
	*kvstore.MemoryStore
}

func (f failingKV) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_LoadMissingDocument(t *testing.T) {
	s := New(kvstore.NewMemoryStore(), "", nil)
	assert.Equal(t, types.DefaultStoreKey, s.Key())

	items, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, s.Len())
}

func TestStore_InsertRemove(t *testing.T) {
	s := New(kvstore.NewMemoryStore(), "", nil)
	flour := mustItem(t, "Flour", "Pantry", "2", "kg")

	require.NoError(t, s.Insert(flour))
	assert.True(t, s.Exists("pantry_flour"))

	err := s.Insert(mustItem(t, "Flour", "Pantry", "1", ""))
	assert.ErrorIs(t, err, types.ErrDuplicateItem)
	assert.Contains(t, err.Error(), `item "Flour" in category "Pantry"`)

	require.NoError(t, s.Remove("pantry_flour"))
	assert.False(t, s.Exists("pantry_flour"))
	assert.ErrorIs(t, s.Remove("pantry_flour"), types.ErrNotFound)
}

func TestStore_AddThenRemoveRestoresDocument(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s := New(kv, "", nil)
	require.NoError(t, s.Insert(mustItem(t, "Rice", "Pantry", "1", "kg")))
	require.NoError(t, s.Save(ctx))
	before, err := kv.Load(ctx, types.DefaultStoreKey)
	require.NoError(t, err)

	require.NoError(t, s.Insert(mustItem(t, "Flour", "Pantry", "2", "kg")))
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Remove("pantry_flour"))
	require.NoError(t, s.Save(ctx))

	after, err := kv.Load(ctx, types.DefaultStoreKey)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestStore_FindByReferenceAndBind(t *testing.T) {
	s := New(kvstore.NewMemoryStore(), "", nil)
	require.NoError(t, s.Insert(mustItem(t, "Flour", "Pantry", "2", "kg")))

	item, ok := s.FindByReference("pantry_flour")
	require.True(t, ok, "item id is always a valid reference")
	assert.Equal(t, "Flour", item.Name)

	_, ok = s.FindByReference("inventory.flour")
	assert.False(t, ok)

	require.NoError(t, s.Bind("pantry_flour", "inventory.flour"))
	item, ok = s.FindByReference("inventory.flour")
	require.True(t, ok)
	assert.Equal(t, "inventory.flour", item.EntityID)

	// Rebinding drops the old handle.
	require.NoError(t, s.Bind("pantry_flour", "inventory.flour_2"))
	_, ok = s.FindByReference("inventory.flour")
	assert.False(t, ok)

	require.NoError(t, s.Remove("pantry_flour"))
	_, ok = s.FindByReference("inventory.flour_2")
	assert.False(t, ok)

	assert.ErrorIs(t, s.Bind("nope", "inventory.nope"), types.ErrNotFound)
}

func TestStore_SaveLayout(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s := New(kv, "", nil)
	require.NoError(t, s.Insert(mustItem(t, "Flour", "Pantry", "2", "kg")))
	require.NoError(t, s.Insert(mustItem(t, "Eggs", "Fridge", "12", "")))
	require.NoError(t, s.Save(ctx))

	data, err := kv.Load(ctx, types.DefaultStoreKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"minor_version": 1,
		"key": "inventory.json",
		"data": [
			{"unique_id": "pantry_flour", "name": "Flour", "category": "Pantry", "quantity": 2, "unit": "kg"},
			{"unique_id": "fridge_eggs", "name": "Eggs", "category": "Fridge", "quantity": 12, "unit": null}
		]
	}`, string(data))
}

func TestStore_ReloadRestoresItems(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()

	first := New(kv, "", nil)
	require.NoError(t, first.Insert(mustItem(t, "Flour", "Pantry", "2", "kg")))
	require.NoError(t, first.Insert(mustItem(t, "Milk", "Fridge", "1.5", "l")))
	flour, _ := first.Get("pantry_flour")
	require.NoError(t, flour.Decrease(decimal.RequireFromString("0.25")))
	require.NoError(t, first.Save(ctx))

	second := New(kv, "", nil)
	items, err := second.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "pantry_flour", items[0].ID)
	assert.Equal(t, "1.75", items[0].State())
	assert.Equal(t, "kg", items[0].Unit)
	assert.Equal(t, "fridge_milk", items[1].ID)
	assert.Equal(t, "1.5", items[1].State())
}

func TestStore_LoadTolerantFormats(t *testing.T) {
	ctx := context.Background()

	t.Run("bare list", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		require.NoError(t, kv.Save(ctx, types.DefaultStoreKey,
			[]byte(`[{"unique_id":"pantry_flour","name":"Flour","category":"Pantry","quantity":2,"unit":"kg"}]`)))
		items, err := New(kv, "", nil).Load(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "pantry_flour", items[0].ID)
	})

	t.Run("missing unique_id is derived", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		require.NoError(t, kv.Save(ctx, types.DefaultStoreKey,
			[]byte(`{"version":1,"key":"inventory.json","data":[{"name":"Flour","category":"Pantry","quantity":"2","unit":null}]}`)))
		items, err := New(kv, "", nil).Load(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "pantry_flour", items[0].ID)
		assert.Equal(t, "", items[0].Unit)
	})

	t.Run("stored unique_id is kept", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		require.NoError(t, kv.Save(ctx, types.DefaultStoreKey,
			[]byte(`{"version":1,"data":[{"unique_id":"legacy-flour","name":"Flour","category":"Pantry","quantity":2}]}`)))
		s := New(kv, "", nil)
		_, err := s.Load(ctx)
		require.NoError(t, err)
		assert.True(t, s.Exists("legacy-flour"))
		assert.False(t, s.Exists("pantry_flour"))
	})
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{{{`},
		{"empty", `   `},
		{"wrong version", `{"version":7,"data":[]}`},
		{"negative quantity", `{"version":1,"data":[{"unique_id":"a","name":"A","category":"X","quantity":-1}]}`},
		{"missing quantity", `{"version":1,"data":[{"unique_id":"a","name":"A","category":"X"}]}`},
		{"non-numeric quantity", `{"version":1,"data":[{"unique_id":"a","name":"A","category":"X","quantity":"lots"}]}`},
		{"blank name", `{"version":1,"data":[{"unique_id":"a","name":" ","category":"X","quantity":1}]}`},
		{"duplicate ids", `{"version":1,"data":[
			{"unique_id":"a","name":"A","category":"X","quantity":1},
			{"unique_id":"a","name":"B","category":"X","quantity":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := kvstore.NewMemoryStore()
			require.NoError(t, kv.Save(ctx, types.DefaultStoreKey, []byte(tt.doc)))
			_, err := New(kv, "", nil).Load(ctx)
			assert.ErrorIs(t, err, types.ErrCorruptState)
		})
	}
}

func TestStore_LoadReadFailureIsNotCorruption(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Close())
	_, err := New(kv, "", nil).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, kvstore.ErrClosed)
	assert.NotErrorIs(t, err, types.ErrCorruptState)
}

func TestStore_SaveFailure(t *testing.T) {
	s := New(failingKV{kvstore.NewMemoryStore()}, "", nil)
	require.NoError(t, s.Insert(mustItem(t, "Flour", "Pantry", "2", "kg")))
	err := s.Save(context.Background())
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")
}

func TestStore_QuantityWrittenAsNumber(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s := New(kv, "garage.json", nil)
	require.NoError(t, s.Insert(mustItem(t, "Screws", "Garage", "0.10", "box")))
	require.NoError(t, s.Save(ctx))

	data, err := kv.Load(ctx, "garage.json")
	require.NoError(t, err)
	var raw struct {
		Key  string           `json:"key"`
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "garage.json", raw.Key)
	require.Len(t, raw.Data, 1)
	assert.IsType(t, float64(0), raw.Data[0]["quantity"])
}
