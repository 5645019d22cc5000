package host

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Entity describes an addressable object a plugin registers. A non-empty
// ObjectID fixes the entity ID to "<domain>.<slug of ObjectID>", the same on
// every start. Otherwise the ID comes from Name and is numbered on
// collision, which depends on registration order.
type Entity struct {
	Domain     string
	UniqueID   string
	ObjectID   string
	Name       string
	State      string
	Attributes map[string]any
}

// State is the current, externally visible state of one entity.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
	ContextID   string         `json:"context_id"`
}

// States is the entity registry. Entity IDs take the form
// "<domain>.<slug of name>", with a numeric suffix on collision.
type States struct {
	mu       sync.RWMutex
	states   map[string]*State
	byUnique map[string]string // domain + "\x00" + unique id -> entity id
	owner    map[string]string // entity id -> domain + "\x00" + unique id
	now      func() time.Time
	log      *slog.Logger
}

// NewStates returns an empty registry.
func NewStates(now func() time.Time, log *slog.Logger) *States {
	return &States{
		states:   make(map[string]*State),
		byUnique: make(map[string]string),
		owner:    make(map[string]string),
		now:      now,
		log:      log,
	}
}

// Register adds e and writes its initial state. It returns the assigned
// entity ID.
// Returns ErrEntityExists if the (domain, unique id) pair is registered or
// the fixed ID from ObjectID is taken.
func (s *States) Register(e Entity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uk := e.Domain + "\x00" + e.UniqueID
	if id, ok := s.byUnique[uk]; ok {
		return "", fmt.Errorf("%w: %s", ErrEntityExists, id)
	}

	var entityID string
	if e.ObjectID != "" {
		entityID = e.Domain + "." + types.Slugify(e.ObjectID)
		if _, taken := s.states[entityID]; taken {
			return "", fmt.Errorf("%w: %s", ErrEntityExists, entityID)
		}
	} else {
		entityID = s.freeEntityID(e.Domain, e.Name)
	}
	now := s.now().UTC()
	s.states[entityID] = &State{
		EntityID:    entityID,
		State:       e.State,
		Attributes:  maps.Clone(e.Attributes),
		LastChanged: now,
		LastUpdated: now,
		ContextID:   newContextID(),
	}
	s.byUnique[uk] = entityID
	s.owner[entityID] = uk
	s.log.Debug("entity registered", "entity_id", entityID, "state", e.State)
	return entityID, nil
}

// freeEntityID picks the first unused "<domain>.<slug>[_n]". The caller
// holds s.mu.
func (s *States) freeEntityID(domain, name string) string {
	slug := types.Slugify(name)
	if slug == "" {
		slug = "unnamed"
	}
	base := domain + "." + slug
	if _, taken := s.states[base]; !taken {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if _, taken := s.states[candidate]; !taken {
			return candidate
		}
	}
}

// Deregister removes the entity and its state.
// Returns ErrEntityNotFound if entityID is unknown.
func (s *States) Deregister(entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[entityID]; !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	delete(s.byUnique, s.owner[entityID])
	delete(s.owner, entityID)
	delete(s.states, entityID)
	s.log.Debug("entity removed", "entity_id", entityID)
	return nil
}

// Write replaces the state and attributes of an entity. LastChanged moves
// only when the state string changes; LastUpdated moves on every write.
// Returns ErrEntityNotFound if entityID is unknown.
func (s *States) Write(entityID, state string, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.states[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	now := s.now().UTC()
	if cur.State != state {
		cur.LastChanged = now
	}
	cur.State = state
	if attrs != nil {
		cur.Attributes = maps.Clone(attrs)
	}
	cur.LastUpdated = now
	cur.ContextID = newContextID()
	s.log.Debug("state written", "entity_id", entityID, "state", state)
	return nil
}

// Get returns a copy of the entity's state.
func (s *States) Get(entityID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	if !ok {
		return State{}, false
	}
	cp := *st
	cp.Attributes = maps.Clone(st.Attributes)
	return cp, true
}

// All returns copies of every state in domain, sorted by entity ID. An empty
// domain returns every state.
func (s *States) All(domain string) []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []State
	for id, st := range s.states {
		if domain != "" && !strings.HasPrefix(id, domain+".") {
			continue
		}
		cp := *st
		cp.Attributes = maps.Clone(st.Attributes)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
