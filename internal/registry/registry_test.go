package registry

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
)

func TestNewRegistersCoreRanks(t *testing.T) {
	r := New()

	root, err := r.Rank("root")
	require.NoError(t, err)
	assert.Equal(t, 1, root.Depth())

	instruction, err := r.Rank("instruction")
	require.NoError(t, err)
	assert.Equal(t, 4, instruction.Depth())
	assert.True(t, instruction.Ancestor(root))
}

func TestDuplicateRegistrationsPanic(t *testing.T) {
	r := New()
	root := r.MustRank("root")
	r.RegisterKind("k", root, nil)

	assert.Panics(t, func() { r.RegisterRank("root", nil) })
	assert.Panics(t, func() { r.RegisterKind("k", root, nil) })
}

func TestUnknownLookups(t *testing.T) {
	r := New()

	t.Run("kind", func(t *testing.T) {
		_, err := r.Kind("ghost")
		var unknown *kind.UnknownError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("container", func(t *testing.T) {
		_, err := r.NewContainer("ghost")
		var unknown *UnknownContainerError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("pipe", func(t *testing.T) {
		_, err := r.NewPipe("ghost", nil)
		var unknown *UnknownPipeError
		require.ErrorAs(t, err, &unknown)
	})
}

func TestModuleRegistration(t *testing.T) {
	r := New()
	mod := &fakeModule{}
	mod.Register(r)

	c, err := r.NewContainer("fake")
	require.NoError(t, err)
	assert.Equal(t, "fake", c.TypeName())
}

// fakeModule registers a stub container type.
type fakeModule struct{}

func (m *fakeModule) Register(r *Registry) {
	r.RegisterContainer("fake", func(reg *Registry) (container.Container, error) {
		return &fakeContainer{}, nil
	})
}

type fakeContainer struct{ container.Container }

func (c *fakeContainer) TypeName() string { return "fake" }

// stubGlobal is the smallest possible savable global.
type stubGlobal struct{}

func (stubGlobal) Serialize(io.Writer) error   { return nil }
func (stubGlobal) Deserialize(io.Reader) error { return nil }
func (g stubGlobal) Clone() core.Global        { return g }
func (stubGlobal) Clear()                      {}

func TestPopulateContext(t *testing.T) {
	r := New()
	r.RegisterGlobal("g", func() core.Global { return stubGlobal{} })

	pctx := core.NewContext()
	require.NoError(t, r.PopulateContext(pctx))
	_, err := pctx.Global("g")
	assert.NoError(t, err)
}
