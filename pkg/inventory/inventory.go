// Package inventory provides the public API for running the inventory
// plugin. It opens the configured storage backend, starts a host runtime,
// and loads the plugin into it while keeping implementation details
// internal.
//
// Example:
//
//	inst, err := inventory.Start(ctx, types.Config{
//	    Backend: types.BackendFile,
//	    DataDir: ".inventory-db",
//	}, host.Options{})
//	if err != nil {
//	    return err
//	}
//	defer inst.Close()
//	_, err = inst.Call(ctx, "add_item", map[string]any{"name": "Flour"})
package inventory

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/inventory/internal/host"
	plugin "github.com/mesh-intelligence/inventory/internal/inventory"
	"github.com/mesh-intelligence/inventory/internal/kvstore"
	"github.com/mesh-intelligence/inventory/internal/store"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Domain is the service domain the plugin registers under.
const Domain = plugin.Domain

// Instance is a running runtime with the inventory plugin loaded.
type Instance struct {
	Runtime *host.Runtime
	Plugin  *plugin.Plugin
	kv      kvstore.Store
}

// Start opens the backend named by cfg and loads the plugin.
// Returns an error wrapping ErrCorruptState if the stored document cannot
// be read.
func Start(ctx context.Context, cfg types.Config, opts host.Options) (*Instance, error) {
	kv, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	rt, err := host.NewRuntime(opts)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	p := plugin.New(store.New(kv, cfg.Key(), rt.Logger), rt.Logger)
	if err := rt.AddPlugin(ctx, p); err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &Instance{Runtime: rt, Plugin: p, kv: kv}, nil
}

// Call dispatches an inventory service through the runtime.
func (i *Instance) Call(ctx context.Context, service string, data map[string]any) (any, error) {
	return i.Runtime.Services.Call(ctx, Domain, service, data)
}

// Items returns copies of every stored item.
func (i *Instance) Items() []*types.Item {
	return i.Plugin.Items()
}

// Close releases the storage backend.
func (i *Instance) Close() error {
	if i.kv == nil {
		return nil
	}
	return i.kv.Close()
}
