package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwnslinger/revng/internal/config"
	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/modules/llvm"
	"github.com/pwnslinger/revng/modules/model"
	"github.com/pwnslinger/revng/modules/raw"
	"github.com/pwnslinger/revng/modules/text"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	text.Module{}.Register(reg)
	raw.Module{}.Register(reg)
	llvm.Module{}.Register(reg)
	model.Module{}.Register(reg)
	return reg
}

func validModel() *config.Model {
	return &config.Model{
		Containers: []*config.Container{
			{Name: "Strings1", Type: text.TypeName},
			{Name: "Strings2", Type: text.TypeName},
			{Name: "module.ll", Type: llvm.TypeName},
		},
		Steps: []*config.Step{
			{
				Name: "FirstStep",
				Pipes: []*config.Pipe{
					{Type: "Copy", UsedContainers: []string{"Strings1", "Strings2"}},
					{Type: llvm.PipeName, UsedContainers: []string{"module.ll"}, Passes: []string{"globaldce"}},
				},
			},
		},
	}
}

func TestBuildResolvesNames(t *testing.T) {
	pipeline, err := Build(context.Background(), validModel(), newRegistry(t))
	require.NoError(t, err)

	require.Len(t, pipeline.Steps(), 1)
	assert.Equal(t, "FirstStep", pipeline.Steps()[0].Name())
	assert.Len(t, pipeline.Steps()[0].Pipes(), 2)
	assert.True(t, pipeline.HasContainer("module.ll"))
}

func TestBuildRejectsUnknownContainerType(t *testing.T) {
	m := validModel()
	m.Containers[0].Type = "warp-drive"

	_, err := Build(context.Background(), m, newRegistry(t))
	var unknown *registry.UnknownContainerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "warp-drive", unknown.Name)
}

func TestBuildRejectsUnknownPipe(t *testing.T) {
	m := validModel()
	m.Steps[0].Pipes[0].Type = "Teleport"

	_, err := Build(context.Background(), m, newRegistry(t))
	var unknown *registry.UnknownPipeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Teleport", unknown.Name)
}

func TestBuildRejectsUnknownPass(t *testing.T) {
	m := validModel()
	m.Steps[0].Pipes[1].Passes = []string{"nonexistent-pass"}

	// A bad inner pass fails at load, before any execution.
	_, err := Build(context.Background(), m, newRegistry(t))
	var unknownPass *llvm.UnknownPassError
	require.ErrorAs(t, err, &unknownPass)
	assert.Equal(t, "nonexistent-pass", unknownPass.Pass)
}

func TestBuildRejectsUndeclaredContainerName(t *testing.T) {
	m := validModel()
	m.Steps[0].Pipes[0].UsedContainers = []string{"Strings1", "ghost"}

	_, err := Build(context.Background(), m, newRegistry(t))
	var unknown *registry.UnknownContainerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
}

func TestBuildRejectsKindMismatch(t *testing.T) {
	// Copy predicts string-kind outputs; an IR container cannot hold
	// them.
	m := validModel()
	m.Steps[0].Pipes[0].UsedContainers = []string{"Strings1", "module.ll"}

	_, err := Build(context.Background(), m, newRegistry(t))
	var mismatch *container.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestBuildRejectsTooFewContainers(t *testing.T) {
	m := validModel()
	m.Steps[0].Pipes[0].UsedContainers = []string{"Strings1"}

	_, err := Build(context.Background(), m, newRegistry(t))
	assert.Error(t, err)
}
