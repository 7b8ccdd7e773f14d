package repl_test

import (
	"bytes"
	"strings"
	"testing"

	"mglock/pkg/repl"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func f1(s string, _ *repl.REPLConfig) (string, error) { return "", nil }
func f2(s string, _ *repl.REPLConfig) (string, error) { return "", nil }

func echo(s string, _ *repl.REPLConfig) (output string, err error) {
	return s, nil
}

func whoami(_ string, c *repl.REPLConfig) (output string, err error) {
	return c.GetAddr().String(), nil
}

// runRepl feeds lines to r and returns everything it wrote.
func runRepl(r *repl.REPL, prompt string, lines ...string) string {
	var output bytes.Buffer
	r.Run(uuid.New(), prompt, strings.NewReader(strings.Join(lines, "\n")+"\n"), &output)
	return output.String()
}

func TestRepl(t *testing.T) {
	t.Run("NewRepl", testNewRepl)
	t.Run("Add", testAdd)
	t.Run("MustAdd", testMustAdd)
	t.Run("HelpString", testHelpString)
	t.Run("CombineZeroRepl", testCombineZeroRepl)
	t.Run("Combine", testCombine)
	t.Run("CombineOverlapping", testCombineOverlapping)
	t.Run("Execute", testExecute)
}

// Tests that a new REPL doesn't contain any commands.
func testNewRepl(t *testing.T) {
	r := repl.NewRepl()
	require.Empty(t, r.GetCommands())
	require.Empty(t, r.GetHelp())
}

func testAdd(t *testing.T) {
	r := repl.NewRepl()
	require.NoError(t, r.AddCommand("1", f1, "1 help"))
	require.NoError(t, r.AddCommand("2", f2, "2 help"))
	require.Contains(t, r.GetCommands(), "1")
	require.Contains(t, r.GetCommands(), "2")
	require.Equal(t, "2 help", r.GetHelp()["2"])

	// A duplicate trigger overwrites.
	require.NoError(t, r.AddCommand("2", f1, "new 2 help"))
	require.Equal(t, "new 2 help", r.GetHelp()["2"])

	err := r.AddCommand(repl.TriggerHelpMetacommand, f1, "fake help")
	require.True(t, errors.Is(err, repl.ErrReservedTrigger), err)
	require.NotContains(t, r.GetCommands(), repl.TriggerHelpMetacommand)
}

func testMustAdd(t *testing.T) {
	r := repl.NewRepl()
	require.NotPanics(t, func() { r.MustAddCommand("1", f1, "1 help") })
	require.Contains(t, r.GetCommands(), "1")
	require.Panics(t, func() { r.MustAddCommand(repl.TriggerHelpMetacommand, f1, "fake help") })
}

func testHelpString(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("b", f1, "b help")
	r.AddCommand("a", f2, "a help")
	require.Equal(t, "a: a help\nb: b help\n", r.HelpString())
}

// Tests that combining zero REPLs gives you an empty REPL.
func testCombineZeroRepl(t *testing.T) {
	r, err := repl.CombineRepls([]*repl.REPL{})
	require.NoError(t, err)
	require.Empty(t, r.GetCommands())
	require.Empty(t, r.GetHelp())
}

func testCombine(t *testing.T) {
	r1, r2 := repl.NewRepl(), repl.NewRepl()
	r1.AddCommand("1", f1, "1 help")
	r2.AddCommand("2", f2, "2 help")
	r, err := repl.CombineRepls([]*repl.REPL{r1, r2})
	require.NoError(t, err)
	require.Len(t, r.GetCommands(), 2)
	require.Equal(t, "1 help", r.GetHelp()["1"])
	require.Equal(t, "2 help", r.GetHelp()["2"])
}

func testCombineOverlapping(t *testing.T) {
	r1, r2 := repl.NewRepl(), repl.NewRepl()
	r1.AddCommand("1", f1, "1 help")
	r2.AddCommand("1", f2, "other 1 help")
	_, err := repl.CombineRepls([]*repl.REPL{r1, r2})
	require.True(t, errors.Is(err, repl.ErrOverlappingCommands), err)
}

func testExecute(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echo, "prints back everything")
	r.AddCommand("whoami", whoami, "prints the client id")
	id := uuid.New()
	cfg := repl.NewREPLConfig(id)

	out, err := r.Execute("echo  hey there", cfg)
	require.NoError(t, err)
	require.Equal(t, "echo  hey there", out)

	out, err = r.Execute("whoami", cfg)
	require.NoError(t, err)
	require.Equal(t, id.String(), out)

	out, err = r.Execute("   ", cfg)
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = r.Execute(repl.TriggerHelpMetacommand, cfg)
	require.NoError(t, err)
	require.Equal(t, r.HelpString(), out)

	_, err = r.Execute("invalid", cfg)
	require.True(t, errors.Is(err, repl.ErrCommandNotFound), err)
}

func TestReplRun(t *testing.T) {
	t.Run("EmptyHelp", testRunEmptyHelp)
	t.Run("InvalidCommand", testRunInvalidCommand)
	t.Run("SingleCommand", testRunSingleCommand)
	t.Run("Prompt", testRunPrompt)
}

func testRunEmptyHelp(t *testing.T) {
	out := runRepl(repl.NewRepl(), "", ".help")
	require.True(t, strings.HasPrefix(out, "Welcome to the mglock REPL!"))
	require.True(t, strings.HasSuffix(out, "\n"))
	require.NotContains(t, out, repl.ErrorPrependStr)
}

func testRunInvalidCommand(t *testing.T) {
	out := runRepl(repl.NewRepl(), "", "invalid")
	require.Contains(t, out, repl.ErrorPrependStr)
	require.Contains(t, out, repl.ErrCommandNotFound.Error())
}

func testRunSingleCommand(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echo, "prints back everything")
	out := runRepl(r, "", "echo hey")
	require.Contains(t, out, "echo hey\n")
}

func testRunPrompt(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("1", f1, "f1 help")
	out := runRepl(r, "> ", "1", "1")
	// One prompt up front and one after each line.
	require.Equal(t, 3, strings.Count(out, "> "))
}
