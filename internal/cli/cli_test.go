package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullInvocation(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-P", "pipeline.hcl",
		"-i", "FirstStep:Strings1:/tmp/input.txt",
		"-o", "FirstStep:Strings2:/tmp/output.txt",
		"-f", "DoCopy",
		"-p", "/tmp/workdir",
		"-debug",
		"FirstStep:Strings2:*:string",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
	require.Len(t, cfg.Inputs, 1)
	assert.Equal(t, "FirstStep", cfg.Inputs[0].Step)
	assert.Equal(t, "Strings1", cfg.Inputs[0].Container)
	assert.Equal(t, "/tmp/input.txt", cfg.Inputs[0].Path)
	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, []string{"DoCopy"}, cfg.Flags)
	assert.Equal(t, "/tmp/workdir", cfg.StoreDir)
	assert.True(t, cfg.Debug)

	require.Len(t, cfg.Targets, 1)
	spec := cfg.Targets[0]
	assert.Equal(t, "FirstStep", spec.Step)
	assert.Equal(t, "Strings2", spec.Container)
	assert.Equal(t, "*", spec.Path)
	assert.Equal(t, "string", spec.Kind)
}

func TestParseGoalStepShorthand(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-P", "pipeline.hcl",
		"--step", "FirstStep",
		"Strings2:*:string",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, "FirstStep", cfg.Targets[0].Step)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "bad input binding",
			args: []string{"-P", "p.hcl", "-i", "justastring", "A:c:x:k"},
			want: "expected step:container:path",
		},
		{
			name: "bad target spec",
			args: []string{"-P", "p.hcl", "A:c:x:k:extra"},
			want: "expected step:container:target-path:kind",
		},
		{
			name: "target without step or --step",
			args: []string{"-P", "p.hcl", "c:x:k"},
			want: "--step not set",
		},
		{
			name: "no goal targets",
			args: []string{"-P", "p.hcl"},
			want: "no goal targets",
		},
		{
			name: "bad log level",
			args: []string{"-P", "p.hcl", "-log-level", "loud", "A:c:x:k"},
			want: "invalid log-level",
		},
		{
			name: "bad log format",
			args: []string{"-P", "p.hcl", "-log-format", "xml", "A:c:x:k"},
			want: "invalid log-format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestParseWithoutPipelinePrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestInvalidateModeNeedsNoGoal(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-P", "p.hcl", "-p", "/tmp/workdir", "-invalidate", "A:c1:one:k1",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.True(t, cfg.Invalidate)
	require.Len(t, cfg.Targets, 1)
}
