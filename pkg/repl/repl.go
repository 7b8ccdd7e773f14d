package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// Trigger for the help meta-command that prints out all help strings
	TriggerHelpMetacommand = ".help"

	// String that should be prepended to any error before being sent to the output writer
	ErrorPrependStr = "ERROR: "
)

var (
	// Returned when combining REPLs that share a trigger
	ErrOverlappingCommands = errors.New("found overlapping commands")

	// Error for when a sent trigger is not associated with any known commands
	ErrCommandNotFound = errors.New("command not found")

	// Returned when a command tries to claim the help meta-command's trigger
	ErrReservedTrigger = errors.New("trigger is reserved")
)

// REPL struct.
type REPL struct {
	commands map[string]ReplCommand
	help     map[string]string
}

// REPL Config struct.
type REPLConfig struct {
	clientId uuid.UUID
}

// NewREPLConfig returns the config commands see when run for clientId.
func NewREPLConfig(clientId uuid.UUID) *REPLConfig {
	return &REPLConfig{clientId: clientId}
}

// Get address.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// Construct an empty REPL.
func NewRepl() *REPL {
	return &REPL{
		commands: make(map[string]ReplCommand),
		help:     make(map[string]string),
	}
}

// Combines a slice of REPLs. Errors if any two share a trigger.
func CombineRepls(repls []*REPL) (*REPL, error) {
	combined := NewRepl()
	for _, r := range repls {
		for trigger, action := range r.commands {
			if _, exists := combined.commands[trigger]; exists {
				return nil, errors.Wrapf(ErrOverlappingCommands, "trigger %q", trigger)
			}
			combined.commands[trigger] = action
			combined.help[trigger] = r.help[trigger]
		}
	}
	return combined, nil
}

// Get commands.
func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

// Get help.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// Add a command, along with its help string, to the set of commands.
// A duplicate trigger overwrites the previous command.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) error {
	if trigger == TriggerHelpMetacommand {
		return errors.Wrapf(ErrReservedTrigger, "%q", trigger)
	}
	r.commands[trigger] = action
	r.help[trigger] = help
	return nil
}

// MustAddCommand is like AddCommand but panics if the trigger is reserved.
// It is meant for commands registered when a REPL is built.
func (r *REPL) MustAddCommand(trigger string, action ReplCommand, help string) {
	if err := r.AddCommand(trigger, action, help); err != nil {
		panic(err)
	}
}

// Return all REPL commands' help strings as one string, sorted by trigger.
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.help))
	for k := range r.help {
		triggers = append(triggers, k)
	}
	sort.Strings(triggers)
	var sb strings.Builder
	for _, k := range triggers {
		fmt.Fprintf(&sb, "%s: %s\n", k, r.help[k])
	}
	return sb.String()
}

// Execute runs the command the payload's first field names.
// An empty payload produces no output and no error.
func (r *REPL) Execute(payload string, replConfig *REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return "", nil
	}
	trigger := fields[0]
	if trigger == TriggerHelpMetacommand {
		return r.HelpString(), nil
	}
	command, exists := r.commands[trigger]
	if !exists {
		return "", errors.Wrapf(ErrCommandNotFound, "%q", trigger)
	}
	return command(payload, replConfig)
}

// Run writes the welcome string and then runs the REPL loop until input is
// exhausted. Input and output default to stdin and stdout.
// The whole line is passed to the command, trigger included.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	replConfig := NewREPLConfig(clientId)
	fmt.Fprintln(output, "Welcome to the mglock REPL! Please type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		result, err := r.Execute(scanner.Text(), replConfig)
		if err != nil {
			fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
		} else {
			// Append newline if there is output and if it doesn't end with a newline already
			if len(result) != 0 && !strings.HasSuffix(result, "\n") {
				result = result + "\n"
			}
			io.WriteString(output, result)
		}
		io.WriteString(output, prompt)
	}
	// Print an additional line if we encountered an EOF character.
	io.WriteString(output, "\n")
}
