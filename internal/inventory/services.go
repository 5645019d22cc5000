package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/inventory/internal/host"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Service names registered under Domain.
const (
	ServiceAddItem          = "add_item"
	ServiceRemoveItem       = "remove_item"
	ServiceIncreaseQuantity = "increase_quantity"
	ServiceDecreaseQuantity = "decrease_quantity"
)

// Service data fields.
const (
	FieldName     = "name"
	FieldQuantity = "quantity"
	FieldUnit     = "unit"
	FieldCategory = "category"
	FieldEntityID = "entity_id"
)

func (p *Plugin) registerServices(services *host.Services) error {
	handlers := []struct {
		name string
		h    host.Handler
	}{
		{ServiceAddItem, p.handleAdd},
		{ServiceRemoveItem, p.handleRemove},
		{ServiceIncreaseQuantity, p.handleIncrease},
		{ServiceDecreaseQuantity, p.handleDecrease},
	}
	for _, s := range handlers {
		if err := services.Register(Domain, s.name, s.h); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) handleAdd(ctx context.Context, call host.ServiceCall) (any, error) {
	name, err := stringField(call.Data, FieldName, true)
	if err != nil {
		return nil, err
	}
	unit, err := stringField(call.Data, FieldUnit, false)
	if err != nil {
		return nil, err
	}
	category, err := stringField(call.Data, FieldCategory, false)
	if err != nil {
		return nil, err
	}
	req := AddRequest{Name: name, Unit: unit, Category: category}
	if qty, ok, err := decimalField(call.Data, FieldQuantity); err != nil {
		return nil, err
	} else if ok {
		req.Quantity = &qty
	}
	return p.Add(ctx, req)
}

func (p *Plugin) handleRemove(ctx context.Context, call host.ServiceCall) (any, error) {
	ref, err := stringField(call.Data, FieldEntityID, true)
	if err != nil {
		return nil, err
	}
	return p.Remove(ctx, ref)
}

func (p *Plugin) handleIncrease(ctx context.Context, call host.ServiceCall) (any, error) {
	ref, amount, err := quantityArgs(call.Data)
	if err != nil {
		return nil, err
	}
	return p.IncreaseQuantity(ctx, ref, amount)
}

func (p *Plugin) handleDecrease(ctx context.Context, call host.ServiceCall) (any, error) {
	ref, amount, err := quantityArgs(call.Data)
	if err != nil {
		return nil, err
	}
	return p.DecreaseQuantity(ctx, ref, amount)
}

func quantityArgs(data map[string]any) (string, decimal.Decimal, error) {
	ref, err := stringField(data, FieldEntityID, true)
	if err != nil {
		return "", decimal.Zero, err
	}
	amount, ok, err := decimalField(data, FieldQuantity)
	if err != nil {
		return "", decimal.Zero, err
	}
	if !ok {
		return "", decimal.Zero, fmt.Errorf("%w: %s is required", types.ErrInvalidData, FieldQuantity)
	}
	return ref, amount, nil
}

// stringField reads a string field. A missing or null field is "" unless
// required.
func stringField(data map[string]any, key string, required bool) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", types.ErrInvalidData, key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", types.ErrInvalidData, key, v)
	}
	if required && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s must not be empty", types.ErrInvalidData, key)
	}
	return s, nil
}

// decimalField reads a numeric field given as a number, a numeric string,
// or a json.Number. The bool reports whether the field was present.
func decimalField(data map[string]any, key string) (decimal.Decimal, bool, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch n := v.(type) {
	case decimal.Decimal:
		d = n
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false, fmt.Errorf("%w: %s must be finite, got %v", types.ErrInvalidData, key, n)
		}
		d = decimal.NewFromFloat(n)
	case float32:
		if f := float64(n); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false, fmt.Errorf("%w: %s must be finite, got %v", types.ErrInvalidData, key, n)
		}
		d = decimal.NewFromFloat32(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int32:
		d = decimal.NewFromInt32(n)
	case int64:
		d = decimal.NewFromInt(n)
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(n))
	default:
		return decimal.Zero, false, fmt.Errorf("%w: %s must be a number, got %T", types.ErrInvalidData, key, v)
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %s must be a number: %q", types.ErrInvalidData, key, v)
	}
	return d, true, nil
}
