package shell_test

import (
	"testing"

	"github.com/mikaelmansson/dsh/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePipelineSingleStage(t *testing.T) {
	p, err := shell.ParsePipeline("echo hello world")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, []string{"echo", "hello", "world"}, p[0].Argv)
}

func TestParsePipelineMultiStage(t *testing.T) {
	p, err := shell.ParsePipeline("ls | wc -l")
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.Equal(t, []string{"ls"}, p[0].Argv)
	assert.Equal(t, []string{"wc", "-l"}, p[1].Argv)
}

func TestParsePipelineRedirections(t *testing.T) {
	p, err := shell.ParsePipeline("cat < in.txt > out.txt")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "in.txt", p[0].InputFile)
	assert.Equal(t, "out.txt", p[0].OutputFile)
	assert.False(t, p[0].Append)
}

func TestParsePipelineAppendRedirection(t *testing.T) {
	p, err := shell.ParsePipeline("echo hi >> log.txt")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "log.txt", p[0].OutputFile)
	assert.True(t, p[0].Append)
}

func TestParsePipelineRedirectionBeforeWords(t *testing.T) {
	// spec.md §9: word/redirection order within a stage is unconstrained.
	p1, err := shell.ParsePipeline("> out.txt echo hi")
	require.NoError(t, err)
	p2, err := shell.ParsePipeline("echo hi > out.txt")
	require.NoError(t, err)
	assert.Equal(t, p1[0].Argv, p2[0].Argv)
	assert.Equal(t, p1[0].OutputFile, p2[0].OutputFile)
}

func TestParsePipelineBlankLine(t *testing.T) {
	p, err := shell.ParsePipeline("   ")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParsePipelineEmptyStage(t *testing.T) {
	_, err := shell.ParsePipeline("echo hi | | cat")
	require.Error(t, err)
	var perr *shell.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParsePipelineMissingRedirectionTarget(t *testing.T) {
	_, err := shell.ParsePipeline("cat >")
	require.Error(t, err)
}

func TestParsePipelineTrailingPipe(t *testing.T) {
	_, err := shell.ParsePipeline("echo hi |")
	require.Error(t, err)
}

func TestParsePipelineRedirectionOnlyCommandIsLegal(t *testing.T) {
	// spec.md §6's grammar, command := (word | redirect)+, and the
	// original dsh.c's execute_pipeline (expanded_args[0] == NULL
	// branch) both treat a bare redirection with no words as a legal
	// no-op command: it performs the redirection and exits 0.
	p, err := shell.ParsePipeline("> out.txt")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Empty(t, p[0].Argv)
	assert.Equal(t, "out.txt", p[0].OutputFile)
}

func TestParsePipelineRedirectionOnlyAsLastPipelineStage(t *testing.T) {
	p, err := shell.ParsePipeline("echo hi | > out.txt")
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.Equal(t, []string{"echo", "hi"}, p[0].Argv)
	assert.Empty(t, p[1].Argv)
	assert.Equal(t, "out.txt", p[1].OutputFile)
}

func TestParsePipelineRedirectionOnlyNotAllowedMidPipeline(t *testing.T) {
	// Only the end-of-stream commit may be redirections-only; a
	// Pipe-triggered commit with empty argv is still a parse error.
	_, err := shell.ParsePipeline("> out.txt | cat")
	require.Error(t, err)
}
