// Package store owns the inventory items and mirrors them to one JSON
// document in a kvstore. The document is rewritten in full after every
// mutation; the last successful save wins.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/inventory/internal/kvstore"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Document format version written by Save.
const (
	documentVersion      = 1
	documentMinorVersion = 1
)

// record is one item in the persisted document.
type record struct {
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Quantity json.Number `json:"quantity"`
	Unit     *string     `json:"unit"`
}

// document is the envelope around the item list.
type document struct {
	Version      int      `json:"version"`
	MinorVersion int      `json:"minor_version"`
	Key          string   `json:"key"`
	Data         []record `json:"data"`
}

// Store is the single owner of every Item. It is not safe for concurrent
// use; the host dispatcher serializes callers.
type Store struct {
	kv    kvstore.Store
	key   string
	items map[string]*types.Item
	order []string          // item ids in insertion order
	refs  map[string]string // host handle -> item id
	log   *slog.Logger
}

// New creates an empty Store over kv. Call Load to read the document.
func New(kv kvstore.Store, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = types.DefaultStoreKey
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		kv:    kv,
		key:   key,
		items: make(map[string]*types.Item),
		refs:  make(map[string]string),
		log:   logger,
	}
}

// Key returns the document key inside the kvstore.
func (s *Store) Key() string { return s.key }

// Load replaces the in-memory collection with the persisted document and
// returns the items in document order. A missing document yields an empty
// collection.
// Returns an error wrapping ErrCorruptState if the document cannot be decoded
// or violates an item invariant, and the kvstore error for read failures.
func (s *Store) Load(ctx context.Context) ([]*types.Item, error) {
	data, err := s.kv.Load(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotExist) {
		s.reset()
		s.log.Info("no inventory document, starting empty", "key", s.key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}

	records, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrCorruptState, s.key, err)
	}

	items := make(map[string]*types.Item, len(records))
	order := make([]string, 0, len(records))
	for i, rec := range records {
		item, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %w", types.ErrCorruptState, s.key, i, err)
		}
		if _, dup := items[item.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate unique_id %q", types.ErrCorruptState, s.key, item.ID)
		}
		items[item.ID] = item
		order = append(order, item.ID)
	}

	s.items = items
	s.order = order
	s.refs = make(map[string]string)
	s.log.Info("inventory loaded", "key", s.key, "items", len(order))
	return s.List(), nil
}

func (s *Store) reset() {
	s.items = make(map[string]*types.Item)
	s.order = nil
	s.refs = make(map[string]string)
}

// decodeDocument accepts the versioned envelope or a bare item list.
func decodeDocument(data []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if trimmed[0] == '[' {
		var records []record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	return doc.Data, nil
}

// fromRecord validates a persisted record. A stored unique_id is kept as is;
// only a missing one is derived from (name, category).
func fromRecord(rec record) (*types.Item, error) {
	if rec.Quantity == "" {
		return nil, fmt.Errorf("%w: missing", types.ErrInvalidQuantity)
	}
	qty, err := decimal.NewFromString(rec.Quantity.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidQuantity, rec.Quantity)
	}
	unit := ""
	if rec.Unit != nil {
		unit = *rec.Unit
	}
	item, err := types.NewItem(rec.Name, rec.Category, qty, unit)
	if err != nil {
		return nil, err
	}
	if rec.UniqueID != "" {
		item.ID = rec.UniqueID
	}
	return item, nil
}

func toRecord(item *types.Item) record {
	rec := record{
		UniqueID: item.ID,
		Name:     item.Name,
		Category: item.Category,
		Quantity: json.Number(item.Quantity.String()),
	}
	if item.Unit != "" {
		unit := item.Unit
		rec.Unit = &unit
	}
	return rec
}

// Save serializes the whole collection in insertion order and overwrites the
// document.
// Returns an error wrapping ErrPersistence on failure.
func (s *Store) Save(ctx context.Context) error {
	doc := document{
		Version:      documentVersion,
		MinorVersion: documentMinorVersion,
		Key:          s.key,
		Data:         make([]record, 0, len(s.order)),
	}
	for _, id := range s.order {
		doc.Data = append(doc.Data, toRecord(s.items[id]))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", types.ErrPersistence, err)
	}
	if err := s.kv.Save(ctx, s.key, data); err != nil {
		s.log.Error("inventory save failed", "key", s.key, "error", err)
		return fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	return nil
}

// Exists reports whether an item with id is stored.
func (s *Store) Exists(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Get returns the item with id.
func (s *Store) Get(id string) (*types.Item, bool) {
	item, ok := s.items[id]
	return item, ok
}

// FindByReference resolves the handle the host uses to address an item. The
// bound host handle is tried first, then the item id itself.
func (s *Store) FindByReference(ref string) (*types.Item, bool) {
	if id, ok := s.refs[ref]; ok {
		return s.Get(id)
	}
	return s.Get(ref)
}

// Bind records ref as the host handle of the item with id.
// Returns ErrNotFound if id is not stored.
func (s *Store) Bind(id, ref string) error {
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrNotFound, id)
	}
	if item.EntityID != "" {
		delete(s.refs, item.EntityID)
	}
	item.EntityID = ref
	if ref != "" {
		s.refs[ref] = id
	}
	return nil
}

// Insert adds item to the collection.
// Returns ErrDuplicateItem if an item with the same id exists.
func (s *Store) Insert(item *types.Item) error {
	if s.Exists(item.ID) {
		return fmt.Errorf("%w: item %q in category %q", types.ErrDuplicateItem, item.Name, item.Category)
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	if item.EntityID != "" {
		s.refs[item.EntityID] = item.ID
	}
	return nil
}

// Remove deletes the item with id.
// Returns ErrNotFound if id is not stored.
func (s *Store) Remove(id string) error {
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrNotFound, id)
	}
	if item.EntityID != "" {
		delete(s.refs, item.EntityID)
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return nil
}

// List returns the stored items in insertion order. The items are owned by
// the store.
func (s *Store) List() []*types.Item {
	out := make([]*types.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int { return len(s.order) }
