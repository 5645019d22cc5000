package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/inventory/internal/host"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// State attribute names published for each item.
const (
	AttrFriendlyName = "friendly_name"
	AttrCategory     = "category"
	AttrUnit         = "unit_of_measurement"
)

// HostEntities adapts the host state registry to EntityRegistry. Handles
// are "inventory.<unique id>", so they survive restarts and removals.
type HostEntities struct {
	states *host.States
}

// NewHostEntities wraps states.
func NewHostEntities(states *host.States) *HostEntities {
	return &HostEntities{states: states}
}

func (h *HostEntities) Register(item *types.Item) (string, error) {
	return h.states.Register(host.Entity{
		Domain:     Domain,
		UniqueID:   item.ID,
		ObjectID:   item.ID,
		Name:       item.Name,
		State:      item.State(),
		Attributes: attributes(item),
	})
}

func (h *HostEntities) Deregister(entityID string) error {
	return h.states.Deregister(entityID)
}

func (h *HostEntities) NotifyStateChanged(entityID string, quantity decimal.Decimal) error {
	return h.states.Write(entityID, quantity.String(), nil)
}

func attributes(item *types.Item) map[string]any {
	attrs := map[string]any{
		AttrFriendlyName: item.Name,
		AttrCategory:     item.Category,
	}
	if item.Unit != "" {
		attrs[AttrUnit] = item.Unit
	}
	return attrs
}
