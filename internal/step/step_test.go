package step

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwnslinger/revng/internal/container"
	"github.com/pwnslinger/revng/internal/contract"
	"github.com/pwnslinger/revng/internal/core"
	"github.com/pwnslinger/revng/internal/kind"
	"github.com/pwnslinger/revng/internal/pipe"
	"github.com/pwnslinger/revng/internal/rank"
	"github.com/pwnslinger/revng/internal/target"
	"github.com/pwnslinger/revng/modules/text"
)

// testPipe is a configurable pipe for step-level tests.
type testPipe struct {
	name     string
	contract *contract.Contract
	execute  func(args []container.Container) error
}

func (p *testPipe) Name() string                 { return p.name }
func (p *testPipe) Contract() *contract.Contract { return p.contract }
func (p *testPipe) Execute(ctx context.Context, pctx *core.Context, args []container.Container) error {
	return p.execute(args)
}

func stringKind(t *testing.T) *kind.Kind {
	t.Helper()
	return kind.New("string", rank.New("root", nil), nil)
}

// copyContract is the identity rewrite from slot 0 to slot 1.
func copyContract(k *kind.Kind, preserved bool) *contract.Contract {
	return contract.MustNew(contract.Rule{
		Source:    &contract.Pattern{Slot: 0, Kind: k, Path: []string{target.Wildcard}},
		Dest:      contract.Output{Slot: 1, Kind: k, Path: contract.Identity()},
		Preserved: preserved,
	})
}

func copyExecute(args []container.Container) error {
	src := args[0].(*text.Container)
	dst := args[1].(*text.Container)
	for _, v := range src.Strings() {
		dst.Add(v)
	}
	return nil
}

func newSet(k *kind.Kind, names ...string) *container.Set {
	set := container.NewSet()
	for _, name := range names {
		set.Add(name, text.NewContainer(k))
	}
	return set
}

func bindPipe(t *testing.T, p pipe.Pipe, containers []string, enabledWhen ...string) *pipe.Bound {
	t.Helper()
	bound, err := pipe.Bind(p, containers, enabledWhen)
	require.NoError(t, err)
	return bound
}

func TestRunExecutesPipesInOrder(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b", "c")
	src, _ := set.Get("a")
	src.(*text.Container).Add("x")

	first := bindPipe(t, &testPipe{name: "first", contract: copyContract(k, true), execute: copyExecute}, []string{"a", "b"})
	second := bindPipe(t, &testPipe{name: "second", contract: copyContract(k, true), execute: copyExecute}, []string{"b", "c"})

	s := New("chain", first, second)
	err := s.Run(context.Background(), core.NewContext(), set, Options{CheckContracts: true})
	require.NoError(t, err)

	c, _ := set.Get("c")
	assert.True(t, c.Has(target.MustNew(k, "x")))
}

func TestGatedPipeIsSkipped(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b")
	src, _ := set.Get("a")
	src.(*text.Container).Add("x")

	gated := bindPipe(t, &testPipe{name: "copy", contract: copyContract(k, true), execute: copyExecute},
		[]string{"a", "b"}, "DoCopy")

	s := New("gated", gated)

	t.Run("flag absent", func(t *testing.T) {
		err := s.Run(context.Background(), core.NewContext(), set, Options{CheckContracts: true})
		require.NoError(t, err)
		dst, _ := set.Get("b")
		assert.True(t, dst.Enumerate().Empty())
	})

	t.Run("flag present", func(t *testing.T) {
		err := s.Run(context.Background(), core.NewContext(), set, Options{
			Flags:          pipe.NewFlags("DoCopy"),
			CheckContracts: true,
		})
		require.NoError(t, err)
		dst, _ := set.Get("b")
		assert.True(t, dst.Has(target.MustNew(k, "x")))
	})
}

func TestPipeFailureAbortsStep(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b", "c")
	src, _ := set.Get("a")
	src.(*text.Container).Add("x")

	ok := bindPipe(t, &testPipe{name: "ok", contract: copyContract(k, true), execute: copyExecute}, []string{"a", "b"})
	boom := bindPipe(t, &testPipe{
		name:     "boom",
		contract: copyContract(k, true),
		execute:  func([]container.Container) error { return fmt.Errorf("disk on fire") },
	}, []string{"b", "c"})
	after := bindPipe(t, &testPipe{name: "after", contract: copyContract(k, true), execute: copyExecute}, []string{"a", "c"})

	s := New("failing", ok, boom, after)
	err := s.Run(context.Background(), core.NewContext(), set, Options{})

	var failed *PipeFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "boom", failed.Pipe)
	assert.ErrorContains(t, failed, "disk on fire")

	// The first pipe's outputs stay materialized for inspection.
	b, _ := set.Get("b")
	assert.True(t, b.Has(target.MustNew(k, "x")))
	// The pipe after the failure never ran.
	c, _ := set.Get("c")
	assert.True(t, c.Enumerate().Empty())
}

func TestContractViolationIsFatalWhenChecking(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b")
	src, _ := set.Get("a")
	src.(*text.Container).Add("x")

	rogue := bindPipe(t, &testPipe{
		name:     "rogue",
		contract: copyContract(k, true),
		execute: func(args []container.Container) error {
			// Emits a target the contract never predicted.
			args[1].(*text.Container).Add("uninvited")
			return nil
		},
	}, []string{"a", "b"})

	s := New("checked", rogue)

	t.Run("fatal in debug", func(t *testing.T) {
		err := s.Run(context.Background(), core.NewContext(), set.Clone(), Options{CheckContracts: true})
		var violation *ContractViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "rogue", violation.Pipe)
	})

	t.Run("downgraded to a warning in release", func(t *testing.T) {
		err := s.Run(context.Background(), core.NewContext(), set.Clone(), Options{CheckContracts: false})
		assert.NoError(t, err)
	})
}

func TestMoveSemanticsConsumeInputs(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b")
	src, _ := set.Get("a")
	src.(*text.Container).Add("x")

	move := bindPipe(t, &testPipe{name: "move", contract: copyContract(k, false), execute: copyExecute},
		[]string{"a", "b"})

	s := New("moving", move)
	err := s.Run(context.Background(), core.NewContext(), set, Options{CheckContracts: true})
	require.NoError(t, err)

	a, _ := set.Get("a")
	b, _ := set.Get("b")
	assert.True(t, a.Enumerate().Empty(), "consumed input should leave the source container")
	assert.True(t, b.Has(target.MustNew(k, "x")))
}

func TestCancellationBetweenPipes(t *testing.T) {
	k := stringKind(t)
	set := newSet(k, "a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("cancelled", bindPipe(t, &testPipe{name: "copy", contract: copyContract(k, true), execute: copyExecute},
		[]string{"a", "b"}))
	err := s.Run(ctx, core.NewContext(), set, Options{})
	assert.True(t, errors.Is(err, core.ErrCancelled))
}
