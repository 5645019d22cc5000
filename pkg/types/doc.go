// Package types defines the Item entity, the identifier generator, backend
// configuration, and the standard error values for the inventory plugin.
package types
