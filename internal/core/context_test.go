package core

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterGlobal is a minimal savable global for tests.
type counterGlobal struct {
	value int
}

func (g *counterGlobal) Serialize(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d", g.value)
	return err
}

func (g *counterGlobal) Deserialize(r io.Reader) error {
	_, err := fmt.Fscanf(r, "%d", &g.value)
	return err
}

func (g *counterGlobal) Clone() Global { return &counterGlobal{value: g.value} }

func (g *counterGlobal) Clear() { g.value = 0 }

func TestRegisterAndLookup(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register("counter", &counterGlobal{value: 7}))

	t.Run("duplicate registration fails", func(t *testing.T) {
		assert.Error(t, c.Register("counter", &counterGlobal{}))
	})

	t.Run("lookup returns the instance", func(t *testing.T) {
		g, err := c.Global("counter")
		require.NoError(t, err)
		assert.Equal(t, 7, g.(*counterGlobal).value)
	})

	t.Run("missing name is NotFound", func(t *testing.T) {
		_, err := c.Global("ghost")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ghost", notFound.Name)
	})
}

func TestFetch(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register("counter", &counterGlobal{value: 3}))

	g, err := Fetch[*counterGlobal](c, "counter")
	require.NoError(t, err)
	assert.Equal(t, 3, g.value)

	_, err = Fetch[*counterGlobal](c, "ghost")
	assert.Error(t, err)
}

func TestUpdateNotifiesListeners(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register("counter", &counterGlobal{}))

	var notified []string
	c.OnChange(func(name string) { notified = append(notified, name) })

	err := c.Update("counter", func(g Global) error {
		g.(*counterGlobal).value = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, notified)

	g, err := Fetch[*counterGlobal](c, "counter")
	require.NoError(t, err)
	assert.Equal(t, 42, g.value)
}

func TestUpdateFailureDoesNotNotify(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register("counter", &counterGlobal{}))

	notified := 0
	c.OnChange(func(string) { notified++ })

	err := c.Update("counter", func(Global) error {
		return fmt.Errorf("mutation refused")
	})
	assert.Error(t, err)
	assert.Zero(t, notified)
}
