package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"mglock/pkg/concurrency"
	"mglock/pkg/repl"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var MAX_DELAY int64 = 10

// Get delay jitter.
func jitter() time.Duration {
	return time.Duration(rand.Int63n(MAX_DELAY)+1) * time.Millisecond
}

// Parse workload
func parseWorkload(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var workload []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		workload = append(workload, scanner.Text())
	}
	return workload, scanner.Err()
}

// Counters shared by every worker.
type stats struct {
	ok        atomic.Int64
	conflicts atomic.Int64
	rejected  atomic.Int64
}

// Split the workload among n workers. Round robin by default; with partition
// set, every line touching the same table goes to the same worker.
func splitWorkload(workload []string, n int, partition bool) [][]string {
	shares := make([][]string, n)
	for i, line := range workload {
		w := i % n
		if partition {
			if table, ok := lineTable(line); ok {
				w = int(table.Hash() % uint64(n))
			}
		}
		shares[w] = append(shares[w], line)
	}
	return shares
}

// Triggers whose first argument is a resource.
var resourceCommands = map[string]bool{
	"lock":      true,
	"unlock":    true,
	"plan":      true,
	"escalate":  true,
	"conflicts": true,
}

// Returns the table-level ancestor (or the database itself) of the resource
// a workload line names, if it names one.
func lineTable(line string) (concurrency.Resource, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !resourceCommands[fields[0]] {
		return concurrency.Resource{}, false
	}
	res, err := concurrency.ParseResource(fields[1])
	if err != nil {
		return concurrency.Resource{}, false
	}
	if ancestors := res.Ancestors(); len(ancestors) > 1 {
		return ancestors[1], true
	}
	return res, true
}

// Handle workload: worker idx runs its lines inside its own transaction.
// Conflicts and rejected requests are expected under contention and only
// counted; anything else stops the run.
func handleWorkload(ctx context.Context, r *repl.REPL, st *stats, lines []string, idx int) error {
	replConfig := repl.NewREPLConfig(uuid.New())
	if _, err := r.Execute("transaction begin", replConfig); err != nil {
		return err
	}
	defer r.Execute("transaction commit", replConfig)
	for _, line := range lines {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter()):
		}
		_, err := r.Execute(line, replConfig)
		switch {
		case err == nil:
			st.ok.Add(1)
		case errors.Is(err, concurrency.ErrLockConflict):
			st.conflicts.Add(1)
			if glog.V(1) {
				glog.Infof("worker %d: %v", idx, err)
			}
		case errors.Is(err, concurrency.ErrInvalidLockRequest), errors.Is(err, concurrency.ErrRedundantLock):
			st.rejected.Add(1)
		default:
			return errors.Wrapf(err, "worker %d line %q", idx, line)
		}
	}
	return nil
}

// Replay a workload of REPL commands against one transaction manager.
func main() {
	var workloadFlag = pflag.StringP("workload", "w", "", "workload file (required)")
	var nFlag = pflag.IntP("threads", "n", 1, "number of threads to run")
	var partitionFlag = pflag.Bool("partition", false, "send all lines touching one table to the same thread")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if *nFlag < 1 {
		fmt.Println("need at least one thread")
		return
	}

	if *workloadFlag == "" {
		fmt.Println("no workload file given")
		return
	}
	workload, err := parseWorkload(*workloadFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	tm := concurrency.NewTransactionManager()
	r := concurrency.LockREPL(tm)
	var st stats
	g, ctx := errgroup.WithContext(context.Background())
	for i, lines := range splitWorkload(workload, *nFlag, *partitionFlag) {
		idx, lines := i, lines
		g.Go(func() error {
			return handleWorkload(ctx, r, &st, lines, idx)
		})
	}
	if err := g.Wait(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
	fmt.Printf("ok=%d conflicts=%d rejected=%d open=%d\n",
		st.ok.Load(), st.conflicts.Load(), st.rejected.Load(), len(tm.TransactionIDs()))
}
