package concurrency

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"mglock/pkg/repl"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Lock REPL.
func LockREPL(tm *TransactionManager) *repl.REPL {
	r := repl.NewRepl()
	r.MustAddCommand("compatible", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleBinary(payload, "compatible", Compatible)
	}, "Can two transactions hold these modes together? usage: compatible <mode> <mode>")

	r.MustAddCommand("canparent", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleBinary(payload, "canparent", CanBeParentLock)
	}, "May a descendant hold <child> under <parent>? usage: canparent <parent> <child>")

	r.MustAddCommand("substitutable", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleBinary(payload, "substitutable", Substitutable)
	}, "Does <substitute> satisfy <required>? usage: substitutable <substitute> <required>")

	r.MustAddCommand("parent", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleParent(payload)
	}, "Lock needed on the parent. usage: parent <mode>")

	r.MustAddCommand("intent", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleIntent(payload)
	}, "Is the mode an intention lock? usage: intent <mode>")

	r.MustAddCommand("promote", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePromote(payload)
	}, "Weakest mode covering both. usage: promote <held> <want>")

	r.MustAddCommand("check", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleCheck(payload)
	}, "Validate an explicit request under a held parent. usage: check <parent> <child>")

	r.MustAddCommand("children", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleChildren(payload)
	}, "Modes a child may hold under <mode>. usage: children <mode>")

	r.MustAddCommand("matrix", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleMatrix(payload)
	}, "Print a relation table. usage: matrix <compatible|canparent|substitutable|parent>")

	r.MustAddCommand("transaction", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleTransaction(tm, payload, replConfig.GetAddr())
	}, "Handle transactions. usage: transaction <begin|commit>")

	r.MustAddCommand("lock", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleLock(tm, payload, replConfig.GetAddr())
	}, "Acquire a lock, with any ancestor locks it needs. usage: lock <resource> <mode>")

	r.MustAddCommand("plan", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePlan(tm, payload, replConfig.GetAddr())
	}, "Show what lock would do without doing it. usage: plan <resource> <mode>")

	r.MustAddCommand("unlock", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleUnlock(tm, payload, replConfig.GetAddr())
	}, "Release a lock. usage: unlock <resource>")

	r.MustAddCommand("escalate", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleEscalate(tm, payload, replConfig.GetAddr())
	}, "Collapse the locks on a subtree into one. usage: escalate <resource>")

	r.MustAddCommand("held", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleHeld(tm, payload, replConfig.GetAddr())
	}, "List the locks this transaction holds. usage: held")

	r.MustAddCommand("conflicts", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleConflicts(tm, payload, replConfig.GetAddr())
	}, "List transactions blocking a mode. usage: conflicts <resource> <mode>")

	return r
}

// parseLockTypes parses every field as a lock type.
func parseLockTypes(fields []string) ([]LockType, error) {
	out := make([]LockType, len(fields))
	for i, f := range fields {
		lt, err := ParseLockType(f)
		if err != nil {
			return nil, err
		}
		out[i] = lt
	}
	return out, nil
}

// Handle a two-operand relation.
func HandleBinary(payload string, cmd string, rel func(a, b LockType) bool) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return "", errors.Newf("usage: %s <mode> <mode>", cmd)
	}
	lts, err := parseLockTypes(fields[1:])
	if err != nil {
		return "", errors.Wrapf(err, "%s error", cmd)
	}
	return strconv.FormatBool(rel(lts[0], lts[1])), nil
}

// Handle check.
func HandleCheck(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return "", errors.New("usage: check <parent> <child>")
	}
	lts, err := parseLockTypes(fields[1:])
	if err != nil {
		return "", errors.Wrap(err, "check error")
	}
	if err := CheckRequest(lts[0], lts[1]); err != nil {
		return "", errors.Wrap(err, "check error")
	}
	return "ok", nil
}

// Handle children.
func HandleChildren(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: children <mode>")
	}
	lt, err := ParseLockType(fields[1])
	if err != nil {
		return "", errors.Wrap(err, "children error")
	}
	return ChildrenOf(lt).String(), nil
}

// Handle parent.
func HandleParent(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: parent <mode>")
	}
	lt, err := ParseLockType(fields[1])
	if err != nil {
		return "", errors.Wrap(err, "parent error")
	}
	return ParentLock(lt).String(), nil
}

// Handle intent.
func HandleIntent(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: intent <mode>")
	}
	lt, err := ParseLockType(fields[1])
	if err != nil {
		return "", errors.Wrap(err, "intent error")
	}
	return strconv.FormatBool(lt.IsIntent()), nil
}

// Handle promote.
func HandlePromote(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return "", errors.New("usage: promote <held> <want>")
	}
	lts, err := parseLockTypes(fields[1:])
	if err != nil {
		return "", errors.Wrap(err, "promote error")
	}
	return Promote(lts[0], lts[1]).String(), nil
}

// Handle matrix.
func HandleMatrix(payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: matrix <compatible|canparent|substitutable|parent>")
	}
	return FormatMatrix(fields[1])
}

// FormatMatrix renders one of the relation tables as aligned text, rows
// being the first operand.
func FormatMatrix(name string) (string, error) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 1, ' ', 0)
	if name == "parent" {
		fmt.Fprintln(w, "mode\tparent")
		for _, a := range AllLockTypes() {
			fmt.Fprintf(w, "%s\t%s\n", a, ParentLock(a))
		}
		w.Flush()
		return sb.String(), nil
	}

	var rel func(a, b LockType) bool
	switch name {
	case "compatible":
		rel = Compatible
	case "canparent":
		rel = CanBeParentLock
	case "substitutable":
		rel = Substitutable
	default:
		return "", errors.Wrapf(ErrInvalidArgument, "unknown relation %q", name)
	}
	for _, b := range AllLockTypes() {
		fmt.Fprintf(w, "\t%s", b)
	}
	fmt.Fprintln(w)
	for _, a := range AllLockTypes() {
		fmt.Fprint(w, a)
		for _, b := range AllLockTypes() {
			mark := "F"
			if rel(a, b) {
				mark = "T"
			}
			fmt.Fprintf(w, "\t%s", mark)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	return sb.String(), nil
}

// Handle transaction.
func HandleTransaction(tm *TransactionManager, payload string, clientId uuid.UUID) (err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 || (fields[1] != "begin" && fields[1] != "commit") {
		return errors.New("usage: transaction <begin|commit>")
	}
	switch fields[1] {
	case "begin":
		return tm.Begin(clientId)
	default:
		return tm.Commit(clientId)
	}
}

// parseTarget parses "<cmd> <resource> <mode>".
func parseTarget(payload string, cmd string) (Resource, LockType, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return Resource{}, 0, errors.Newf("usage: %s <resource> <mode>", cmd)
	}
	r, err := ParseResource(fields[1])
	if err != nil {
		return Resource{}, 0, errors.Wrapf(err, "%s error", cmd)
	}
	lt, err := ParseLockType(fields[2])
	if err != nil {
		return Resource{}, 0, errors.Wrapf(err, "%s error", cmd)
	}
	return r, lt, nil
}

// formatSteps prints one step per line, or a note when there is nothing to do.
func formatSteps(steps []Step) string {
	if len(steps) == 0 {
		return "already held"
	}
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}

// Handle lock requests.
func HandleLock(tm *TransactionManager, payload string, clientId uuid.UUID) (output string, err error) {
	r, lt, err := parseTarget(payload, "lock")
	if err != nil {
		return "", err
	}
	steps, err := tm.Acquire(clientId, r, lt)
	if err != nil {
		return "", errors.Wrap(err, "lock error")
	}
	return formatSteps(steps), nil
}

// Handle plan requests.
func HandlePlan(tm *TransactionManager, payload string, clientId uuid.UUID) (output string, err error) {
	r, lt, err := parseTarget(payload, "plan")
	if err != nil {
		return "", err
	}
	steps, err := tm.Plan(clientId, r, lt)
	if err != nil {
		return "", errors.Wrap(err, "plan error")
	}
	return formatSteps(steps), nil
}

// Handle unlock requests.
func HandleUnlock(tm *TransactionManager, payload string, clientId uuid.UUID) (err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return errors.New("usage: unlock <resource>")
	}
	r, err := ParseResource(fields[1])
	if err != nil {
		return errors.Wrap(err, "unlock error")
	}
	if err = tm.Release(clientId, r); err != nil {
		return errors.Wrap(err, "unlock error")
	}
	return nil
}

// Handle escalate requests.
func HandleEscalate(tm *TransactionManager, payload string, clientId uuid.UUID) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: escalate <resource>")
	}
	r, err := ParseResource(fields[1])
	if err != nil {
		return "", errors.Wrap(err, "escalate error")
	}
	steps, err := tm.Escalate(clientId, r)
	if err != nil {
		return "", errors.Wrap(err, "escalate error")
	}
	return formatSteps(steps), nil
}

// Handle held.
func HandleHeld(tm *TransactionManager, payload string, clientId uuid.UUID) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", errors.New("usage: held")
	}
	t, found := tm.GetTransaction(clientId)
	if !found {
		return "", errors.Wrap(ErrNoSuchTransaction, "held error")
	}
	held := t.GetResources()
	resources := make([]Resource, 0, len(held))
	for r := range held {
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].String() < resources[j].String() })
	var sb strings.Builder
	for _, r := range resources {
		fmt.Fprintf(&sb, "%s %s\n", r, held[r])
	}
	return sb.String(), nil
}

// Handle conflicts.
func HandleConflicts(tm *TransactionManager, payload string, clientId uuid.UUID) (output string, err error) {
	r, lt, err := parseTarget(payload, "conflicts")
	if err != nil {
		return "", err
	}
	ids, err := tm.Conflicts(clientId, r, lt)
	if err != nil {
		return "", errors.Wrap(err, "conflicts error")
	}
	if len(ids) == 0 {
		return "none", nil
	}
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = id.String()
	}
	return strings.Join(lines, "\n"), nil
}
