// Package inventory implements the inventory plugin: the add, remove,
// increase and decrease actions over the item store, and their registration
// as services on the host runtime.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/inventory/internal/host"
	"github.com/mesh-intelligence/inventory/internal/store"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Domain is the namespace the plugin registers its entities and services
// under.
const Domain = "inventory"

// EntityRegistry is the part of the host the plugin needs: making items
// addressable and publishing their quantity.
type EntityRegistry interface {
	// Register makes item addressable and returns its handle.
	Register(item *types.Item) (string, error)

	// Deregister removes the handle and its state.
	Deregister(entityID string) error

	// NotifyStateChanged publishes a new quantity for the handle.
	NotifyStateChanged(entityID string, quantity decimal.Decimal) error
}

// Plugin holds the item store and the host registry. It is driven by the
// host dispatcher, which runs one action at a time.
type Plugin struct {
	store    *store.Store
	entities EntityRegistry
	log      *slog.Logger
}

// New creates a Plugin over st. The entity registry is taken from the
// runtime in Setup unless one is supplied with WithRegistry.
func New(st *store.Store, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Plugin{store: st, log: logger}
}

// WithRegistry sets the entity registry and returns p.
func (p *Plugin) WithRegistry(r EntityRegistry) *Plugin {
	p.entities = r
	return p
}

// Name implements host.Plugin.
func (p *Plugin) Name() string { return Domain }

// Setup loads the store, registers every restored item with the host, and
// registers the plugin's services.
// Returns an error wrapping ErrCorruptState if the document cannot be read.
func (p *Plugin) Setup(ctx context.Context, rt *host.Runtime) error {
	if p.entities == nil {
		p.entities = NewHostEntities(rt.States)
	}
	if err := p.Restore(ctx); err != nil {
		return err
	}
	return p.registerServices(rt.Services)
}

// Restore loads the store and registers each item with the entity registry.
func (p *Plugin) Restore(ctx context.Context) error {
	items, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		entityID, err := p.entities.Register(item)
		if err != nil {
			return fmt.Errorf("register %s: %w", item.ID, err)
		}
		if err := p.store.Bind(item.ID, entityID); err != nil {
			return err
		}
	}
	p.log.Info("inventory restored", "items", len(items))
	return nil
}

// AddRequest carries the add_item parameters. A nil Quantity means
// DefaultQuantity; an empty Category means DefaultCategory.
type AddRequest struct {
	Name     string
	Quantity *decimal.Decimal
	Unit     string
	Category string
}

// Add creates an item, registers it with the host and persists the store.
// Returns ErrInvalidName, ErrInvalidQuantity, or ErrDuplicateItem (wrapped
// with the item name and category).
func (p *Plugin) Add(ctx context.Context, req AddRequest) (*types.Item, error) {
	category := req.Category
	if strings.TrimSpace(category) == "" {
		category = types.DefaultCategory
	}
	quantity := types.DefaultQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := types.NewItem(req.Name, category, quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	if p.store.Exists(item.ID) {
		return nil, fmt.Errorf("%w: item %q in category %q", types.ErrDuplicateItem, item.Name, item.Category)
	}
	if err := p.store.Insert(item); err != nil {
		return nil, err
	}

	entityID, err := p.entities.Register(item)
	if err != nil {
		_ = p.store.Remove(item.ID)
		return nil, fmt.Errorf("register %s: %w", item.ID, err)
	}
	if err := p.store.Bind(item.ID, entityID); err != nil {
		return nil, err
	}

	p.log.Debug("item added", "unique_id", item.ID, "entity_id", entityID, "quantity", item.State())
	if err := p.store.Save(ctx); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Remove deregisters the item addressed by ref and deletes it from the store.
// Returns ErrNotFound if ref resolves to no item.
func (p *Plugin) Remove(ctx context.Context, ref string) (*types.Item, error) {
	item, err := p.resolve(ref)
	if err != nil {
		return nil, err
	}
	if item.EntityID != "" {
		if err := p.entities.Deregister(item.EntityID); err != nil {
			return nil, fmt.Errorf("deregister %s: %w", item.EntityID, err)
		}
	}
	if err := p.store.Remove(item.ID); err != nil {
		return nil, err
	}

	p.log.Debug("item removed", "unique_id", item.ID, "entity_id", item.EntityID)
	if err := p.store.Save(ctx); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// IncreaseQuantity adds amount to the item addressed by ref.
// Returns ErrNotFound or ErrInvalidQuantity.
func (p *Plugin) IncreaseQuantity(ctx context.Context, ref string, amount decimal.Decimal) (*types.Item, error) {
	return p.changeQuantity(ctx, ref, amount, (*types.Item).Increase)
}

// DecreaseQuantity subtracts amount from the item addressed by ref.
// Returns ErrNotFound, ErrInvalidQuantity, or ErrInsufficientQuantity; on
// error the quantity is unchanged.
func (p *Plugin) DecreaseQuantity(ctx context.Context, ref string, amount decimal.Decimal) (*types.Item, error) {
	return p.changeQuantity(ctx, ref, amount, (*types.Item).Decrease)
}

// changeQuantity applies op, publishes the new state, then saves. Once op has
// succeeded the in-memory quantity stays changed even if publishing or
// saving fails; the save is attempted either way so disk follows memory.
func (p *Plugin) changeQuantity(ctx context.Context, ref string, amount decimal.Decimal,
	op func(*types.Item, decimal.Decimal) error) (*types.Item, error) {
	item, err := p.resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := op(item, amount); err != nil {
		return nil, err
	}

	var notifyErr error
	if item.EntityID != "" {
		if err := p.entities.NotifyStateChanged(item.EntityID, item.Quantity); err != nil {
			notifyErr = fmt.Errorf("notify %s: %w", item.EntityID, err)
		}
	}
	saveErr := p.store.Save(ctx)
	if err := errors.Join(notifyErr, saveErr); err != nil {
		return nil, err
	}

	p.log.Debug("quantity changed", "unique_id", item.ID, "quantity", item.State())
	return item.Clone(), nil
}

// Get returns a copy of the item addressed by ref.
// Returns ErrNotFound if ref resolves to no item.
func (p *Plugin) Get(ref string) (*types.Item, error) {
	item, err := p.resolve(ref)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Items returns copies of every item in insertion order.
func (p *Plugin) Items() []*types.Item {
	items := p.store.List()
	out := make([]*types.Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func (p *Plugin) resolve(ref string) (*types.Item, error) {
	item, ok := p.store.FindByReference(ref)
	if !ok {
		return nil, fmt.Errorf("%w: no item with reference %q", types.ErrNotFound, ref)
	}
	return item, nil
}
