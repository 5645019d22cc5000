package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to items added without a category.
const DefaultCategory = "Uncategorized"

// DefaultQuantity is the starting quantity of items added without one.
var DefaultQuantity = decimal.NewFromInt(1)

// Item is one inventory entry. The store owns every Item; the host addresses
// it by EntityID.
type Item struct {
	ID       string          `json:"unique_id"`           // Derived from (Category, Name); never reassigned.
	Name     string          `json:"name"`                // Display name (required, non-empty).
	Category string          `json:"category"`            // Display category.
	Quantity decimal.Decimal `json:"quantity"`            // Never negative.
	Unit     string          `json:"unit,omitempty"`      // Optional unit of measurement; empty when absent.
	EntityID string          `json:"entity_id,omitempty"` // Host handle assigned on registration; not persisted.
}

// NewItem constructs an Item and derives its ID. Defaults are resolved by the
// caller; NewItem only validates.
// Returns ErrInvalidName for a blank name and ErrInvalidQuantity for a
// negative quantity.
func NewItem(name, category string, quantity decimal.Decimal, unit string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}
	return &Item{
		ID:       GenerateID(name, category),
		Name:     name,
		Category: category,
		Quantity: quantity,
		Unit:     unit,
	}, nil
}

// Increase adds amount to the quantity.
// Returns ErrInvalidQuantity if amount is negative.
func (i *Item) Increase(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, amount)
	}
	i.Quantity = i.Quantity.Add(amount)
	return nil
}

// Decrease subtracts amount from the quantity. A decrease that would cross
// zero is rejected, not clamped, and leaves the quantity unchanged.
// Returns ErrInvalidQuantity if amount is negative and
// ErrInsufficientQuantity if amount exceeds the quantity.
func (i *Item) Decrease(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, amount)
	}
	if amount.GreaterThan(i.Quantity) {
		return fmt.Errorf("%w: cannot take %s from %q (have %s)", ErrInsufficientQuantity, amount, i.Name, i.Quantity)
	}
	i.Quantity = i.Quantity.Sub(amount)
	return nil
}

// State returns the quantity as the host displays it.
func (i *Item) State() string {
	return i.Quantity.String()
}

// Clone returns a copy that shares nothing with i.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}
