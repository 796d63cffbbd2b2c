package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pwnslinger/revng/internal/rank"
)

func TestMatches(t *testing.T) {
	root := rank.New("root", nil)
	base := New("base", root, nil)
	derived := New("derived", root, base)
	unrelated := New("unrelated", root, nil)

	t.Run("a kind matches itself", func(t *testing.T) {
		assert.True(t, base.Matches(base))
	})

	t.Run("a descendant matches its parent", func(t *testing.T) {
		assert.True(t, derived.Matches(base))
	})

	t.Run("a parent does not match its descendant", func(t *testing.T) {
		assert.False(t, base.Matches(derived))
	})

	t.Run("unrelated kinds do not match", func(t *testing.T) {
		assert.False(t, unrelated.Matches(base))
		assert.False(t, base.Matches(unrelated))
	})
}

func TestMatchesTransitivity(t *testing.T) {
	root := rank.New("root", nil)
	c := New("c", root, nil)
	b := New("b", root, c)
	a := New("a", root, b)

	// a descends b, b descends c, so a matches c.
	assert.True(t, a.Matches(b))
	assert.True(t, b.Matches(c))
	assert.True(t, a.Matches(c))
}

func TestDepthFollowsRank(t *testing.T) {
	root := rank.New("root", nil)
	function := rank.New("function", root)

	k := New("lifted-function", function, nil)
	assert.Equal(t, 2, k.Depth())
	assert.Equal(t, function, k.Rank())
}

func TestUnknownError(t *testing.T) {
	err := &UnknownError{Name: "ghost"}
	assert.ErrorContains(t, err, "unknown kind")
	assert.ErrorContains(t, err, "ghost")
}
