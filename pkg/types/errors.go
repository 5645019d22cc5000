package types

import "errors"

// Item store and action errors. Handlers wrap these with the item name or
// reference; callers compare with errors.Is.
var (
	ErrDuplicateItem        = errors.New("item already exists")
	ErrNotFound             = errors.New("item not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrPersistence          = errors.New("persist inventory")
	ErrCorruptState         = errors.New("corrupt inventory state")
)

// Validation errors.
var (
	ErrInvalidName     = errors.New("item name must not be empty")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrInvalidData     = errors.New("invalid service data")
)
