// Package host is a minimal in-process home-automation runtime. It keeps an
// entity state registry, dispatches named services one call at a time, and
// loads plugins that register entities and services against it.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Plugin is the contract between the runtime and an integration.
type Plugin interface {
	// Name returns the domain the plugin registers under.
	Name() string

	// Setup restores the plugin's entities and registers its services.
	Setup(ctx context.Context, rt *Runtime) error
}

// Runtime errors.
var (
	ErrPluginExists    = errors.New("plugin already loaded")
	ErrEntityExists    = errors.New("entity already registered")
	ErrEntityNotFound  = errors.New("entity not found")
	ErrServiceExists   = errors.New("service already registered")
	ErrServiceNotFound = errors.New("service not found")
)

// Options configures a Runtime. Zero values are valid.
type Options struct {
	// Registerer receives the dispatcher metrics. A private registry is used
	// when nil.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Runtime bundles the state registry and the service dispatcher.
type Runtime struct {
	States   *States
	Services *Services
	Logger   *slog.Logger

	mu      sync.Mutex
	plugins map[string]Plugin
}

// NewRuntime creates a Runtime with empty registries.
func NewRuntime(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	services, err := NewServices(opts.Registerer, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		States:   NewStates(clock, logger),
		Services: services,
		Logger:   logger,
		plugins:  make(map[string]Plugin),
	}, nil
}

// AddPlugin runs the plugin's Setup and records it under its name.
// Returns ErrPluginExists if a plugin with the same name is loaded.
func (rt *Runtime) AddPlugin(ctx context.Context, p Plugin) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	name := p.Name()
	if _, ok := rt.plugins[name]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}
	if err := p.Setup(ctx, rt); err != nil {
		return fmt.Errorf("setup %s: %w", name, err)
	}
	rt.plugins[name] = p
	rt.Logger.Info("plugin loaded", "domain", name)
	return nil
}

// Plugins returns the names of the loaded plugins, sorted.
func (rt *Runtime) Plugins() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	names := make([]string, 0, len(rt.plugins))
	for name := range rt.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newContextID generates a UUID v7 that ties a state write to its cause.
func newContextID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
