package host

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances one second on every reading.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStates() (*States, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStates(clock.Now, slog.New(slog.NewTextHandler(io.Discard, nil))), clock
}

func TestStates_Register(t *testing.T) {
	s, _ := newTestStates()

	id, err := s.Register(Entity{Domain: "inventory", UniqueID: "pantry_flour", Name: "Flour", State: "2",
		Attributes: map[string]any{"category": "Pantry"}})
	require.NoError(t, err)
	assert.Equal(t, "inventory.flour", id)

	st, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "2", st.State)
	assert.Equal(t, "Pantry", st.Attributes["category"])
	assert.NotEmpty(t, st.ContextID)
	assert.Equal(t, st.LastChanged, st.LastUpdated)

	t.Run("same name in another category gets a suffix", func(t *testing.T) {
		id2, err := s.Register(Entity{Domain: "inventory", UniqueID: "baking_flour", Name: "Flour", State: "1"})
		require.NoError(t, err)
		assert.Equal(t, "inventory.flour_2", id2)

		id3, err := s.Register(Entity{Domain: "inventory", UniqueID: "garage_flour", Name: "Flour", State: "1"})
		require.NoError(t, err)
		assert.Equal(t, "inventory.flour_3", id3)
	})

	t.Run("same unique id is rejected", func(t *testing.T) {
		_, err := s.Register(Entity{Domain: "inventory", UniqueID: "pantry_flour", Name: "Flour"})
		assert.ErrorIs(t, err, ErrEntityExists)
	})

	t.Run("object id fixes the entity id", func(t *testing.T) {
		id, err := s.Register(Entity{Domain: "inventory", UniqueID: "cellar_flour", ObjectID: "cellar_flour", Name: "Flour"})
		require.NoError(t, err)
		assert.Equal(t, "inventory.cellar_flour", id)

		_, err = s.Register(Entity{Domain: "inventory", UniqueID: "other", ObjectID: "Cellar Flour", Name: "Flour"})
		assert.ErrorIs(t, err, ErrEntityExists, "a fixed id is never renumbered")
	})

	t.Run("unnamed entity", func(t *testing.T) {
		id, err := s.Register(Entity{Domain: "inventory", UniqueID: "x", Name: "!!!"})
		require.NoError(t, err)
		assert.Equal(t, "inventory.unnamed", id)
	})
}

func TestStates_Write(t *testing.T) {
	s, _ := newTestStates()
	id, err := s.Register(Entity{Domain: "inventory", UniqueID: "pantry_flour", Name: "Flour", State: "2"})
	require.NoError(t, err)
	before, _ := s.Get(id)

	require.NoError(t, s.Write(id, "3", map[string]any{"unit_of_measurement": "kg"}))
	changed, _ := s.Get(id)
	assert.Equal(t, "3", changed.State)
	assert.Equal(t, "kg", changed.Attributes["unit_of_measurement"])
	assert.True(t, changed.LastChanged.After(before.LastChanged))
	assert.NotEqual(t, before.ContextID, changed.ContextID)

	// Same state: only LastUpdated moves; nil attrs keep the old ones.
	require.NoError(t, s.Write(id, "3", nil))
	same, _ := s.Get(id)
	assert.Equal(t, changed.LastChanged, same.LastChanged)
	assert.True(t, same.LastUpdated.After(changed.LastUpdated))
	assert.Equal(t, "kg", same.Attributes["unit_of_measurement"])

	assert.ErrorIs(t, s.Write("inventory.nothing", "1", nil), ErrEntityNotFound)
}

func TestStates_Deregister(t *testing.T) {
	s, _ := newTestStates()
	id, err := s.Register(Entity{Domain: "inventory", UniqueID: "pantry_flour", Name: "Flour", State: "2"})
	require.NoError(t, err)

	require.NoError(t, s.Deregister(id))
	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Deregister(id), ErrEntityNotFound)

	// The unique id and entity id are free again.
	again, err := s.Register(Entity{Domain: "inventory", UniqueID: "pantry_flour", Name: "Flour", State: "2"})
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestStates_AllAndCopies(t *testing.T) {
	s, _ := newTestStates()
	_, err := s.Register(Entity{Domain: "inventory", UniqueID: "b", Name: "Sugar", State: "1", Attributes: map[string]any{"k": "v"}})
	require.NoError(t, err)
	_, err = s.Register(Entity{Domain: "inventory", UniqueID: "a", Name: "Flour", State: "2"})
	require.NoError(t, err)
	_, err = s.Register(Entity{Domain: "light", UniqueID: "a", Name: "Kitchen", State: "on"})
	require.NoError(t, err)

	inv := s.All("inventory")
	require.Len(t, inv, 2)
	assert.Equal(t, "inventory.flour", inv[0].EntityID)
	assert.Equal(t, "inventory.sugar", inv[1].EntityID)
	assert.Len(t, s.All(""), 3)

	inv[1].Attributes["k"] = "changed"
	st, _ := s.Get("inventory.sugar")
	assert.Equal(t, "v", st.Attributes["k"])
}
