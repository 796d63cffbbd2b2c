package text

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/rank"
	"github.com/pwnslinger/revng/internal/target"
)

func stringKind(t *testing.T) *kind.Kind {
	t.Helper()
	return kind.New(KindName, rank.New("root", nil), nil)
}

func TestContainerBasics(t *testing.T) {
	k := stringKind(t)
	c := NewContainer(k)
	c.Add("b")
	c.Add("a")

	assert.Equal(t, []string{"a", "b"}, c.Strings())
	assert.True(t, c.Has(target.MustNew(k, "a")))
	assert.False(t, c.Has(target.MustNew(k, "z")))
	assert.Equal(t, 2, c.Enumerate().Len())

	c.Remove(target.NewSet(target.MustNew(k, "a")))
	assert.False(t, c.Has(target.MustNew(k, "a")))
}

func TestExtractAndMerge(t *testing.T) {
	k := stringKind(t)
	c := NewContainer(k)
	c.Add("a")
	c.Add("b")

	extracted := c.Extract(target.NewSet(target.MustNew(k, "a")))
	assert.Equal(t, 1, extracted.Enumerate().Len())

	other := NewContainer(k)
	other.Add("c")
	require.NoError(t, c.MergeBack(other))
	assert.Equal(t, []string{"a", "b", "c"}, c.Strings())
}

func TestMergeRejectsForeignContainers(t *testing.T) {
	k := stringKind(t)
	c := NewContainer(k)
	err := c.MergeBack(&fakeContainer{})
	var mismatch *container.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

// fakeContainer is a minimal non-text container.
type fakeContainer struct{ container.Container }

func (f *fakeContainer) TypeName() string { return "fake" }

func TestSerializationRoundTrip(t *testing.T) {
	k := stringKind(t)
	c := NewContainer(k)
	c.Add("b")
	c.Add("a")

	var buf bytes.Buffer
	require.NoError(t, c.Serialize(&buf))
	assert.Equal(t, "a\nb\n", buf.String())

	restored := NewContainer(k)
	require.NoError(t, restored.Deserialize(&buf))
	assert.Equal(t, []string{"a", "b"}, restored.Strings())
}

func TestDeserializeSkipsBlankLines(t *testing.T) {
	k := stringKind(t)
	c := NewContainer(k)
	require.NoError(t, c.Deserialize(strings.NewReader("a\n\n  \nb")))
	assert.Equal(t, []string{"a", "b"}, c.Strings())
}

func TestCopyPipe(t *testing.T) {
	k := stringKind(t)
	src := NewContainer(k)
	src.Add("a")
	src.Add("b")
	dst := NewContainer(k)

	p := NewCopy(k)
	err := p.Execute(context.Background(), nil, []container.Container{src, dst})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, dst.Strings())
	// Copy preserves its source.
	assert.Equal(t, []string{"a", "b"}, src.Strings())
}
