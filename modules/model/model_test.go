package model

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/rank"
	"github.com/pwnslinger/revng/modules/text"
)

func TestGlobalSerializationRoundTrip(t *testing.T) {
	g := &Global{}
	g.Binary().Architecture = "aarch64"
	g.Binary().EntryPoint = 0x401000
	g.Binary().Functions = []Function{
		{Name: "main", Entry: 0x401000},
		{Name: "init", Entry: 0x401200},
	}

	var buf bytes.Buffer
	require.NoError(t, g.Serialize(&buf))
	assert.Contains(t, buf.String(), "architecture: aarch64")

	restored := &Global{}
	require.NoError(t, restored.Deserialize(&buf))
	assert.Equal(t, g.Binary(), restored.Binary())
}

func TestCloneIsIndependent(t *testing.T) {
	g := &Global{}
	g.Binary().Functions = []Function{{Name: "main"}}

	clone := g.Clone().(*Global)
	clone.Binary().Functions[0].Name = "changed"
	assert.Equal(t, "main", g.Binary().Functions[0].Name)

	clone.Clear()
	assert.Empty(t, clone.Binary().Functions)
}

func TestContextAccessors(t *testing.T) {
	pctx := core.NewContext()
	require.NoError(t, pctx.Register(GlobalName, &Global{}))

	binary, err := FromContext(pctx)
	require.NoError(t, err)
	assert.Empty(t, binary.Functions)

	var notified int
	pctx.OnChange(func(string) { notified++ })

	require.NoError(t, Update(pctx, func(b *Binary) {
		b.Functions = append(b.Functions, Function{Name: "main"})
	}))
	assert.Equal(t, 1, notified)

	binary, err = FromContext(pctx)
	require.NoError(t, err)
	require.Len(t, binary.Functions, 1)
}

func TestFunctionsPipeEmitsModelFunctions(t *testing.T) {
	stringKind := kind.New(text.KindName, rank.New("root", nil), nil)

	pctx := core.NewContext()
	g := &Global{}
	g.Binary().Functions = []Function{{Name: "main"}, {Name: "init"}}
	require.NoError(t, pctx.Register(GlobalName, g))

	dst := text.NewContainer(stringKind)
	p := NewFunctions(stringKind)
	require.NoError(t, p.Execute(context.Background(), pctx, []container.Container{dst}))

	assert.Equal(t, []string{"init", "main"}, dst.Strings())
	assert.Equal(t, []string{GlobalName}, p.ReadsGlobals())
}
