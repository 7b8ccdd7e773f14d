package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"mglock/pkg/concurrency"
	"mglock/pkg/config"
	"mglock/pkg/repl"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	promptFlag bool
	portFlag   int
)

var rootCmd = &cobra.Command{
	Use:   config.Name,
	Short: "explore the multigranularity lock-type algebra",
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "run the lock REPL on stdin and stdout",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		tm := concurrency.NewTransactionManager()
		concurrency.LockREPL(tm).Run(uuid.New(), config.GetPrompt(promptFlag), nil, nil)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the lock REPL over TCP, one transaction per connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm := concurrency.NewTransactionManager()
		return startServer(concurrency.LockREPL(tm), tm, config.GetPrompt(promptFlag), portFlag)
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "connect stdin and stdout to a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := net.Dial("tcp", fmt.Sprintf(":%v", portFlag))
		if err != nil {
			return err
		}
		defer conn.Close()
		go mustCopy(os.Stdout, conn)
		mustCopy(conn, os.Stdin)
		return nil
	},
}

var matrixCmd = &cobra.Command{
	Use:       "matrix <compatible|canparent|substitutable|parent>",
	Short:     "print a relation table",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"compatible", "canparent", "substitutable", "parent"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := concurrency.FormatMatrix(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", config.DefaultPort, "port number")
	replCmd.Flags().BoolVarP(&promptFlag, "prompt", "c", true, "use prompt?")
	serveCmd.Flags().BoolVarP(&promptFlag, "prompt", "c", true, "use prompt?")
	rootCmd.AddCommand(replCmd, serveCmd, connectCmd, matrixCmd)
}

// Writes everything from src to dst.
func mustCopy(dst io.Writer, src io.Reader) {
	if _, err := io.Copy(dst, src); err != nil {
		glog.Fatal(err)
	}
}

// Flushes the log on SIGINT or SIGTERM before exiting.
func setupCloseHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		glog.Info("closehandler invoked")
		glog.Flush()
		os.Exit(0)
	}()
}

// Start listening for connections at port `port`.
func startServer(r *repl.REPL, tm *concurrency.TransactionManager, prompt string, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		return err
	}
	setupCloseHandler()
	glog.Infof("%v server started listening on localhost:%v", config.Name,
		listener.Addr().(*net.TCPAddr).Port)
	return serveConns(listener, r, tm, prompt)
}

// Runs the repl on every connection accepted from listener until the listener
// is closed. Each connection is one client; its transaction is committed when
// the connection goes away.
func serveConns(listener net.Listener, r *repl.REPL, tm *concurrency.TransactionManager, prompt string) error {
	// Handle a connection by running the repl on it.
	handleConn := func(c net.Conn) {
		clientId := uuid.New()
		if glog.V(2) {
			glog.Infof("client %s connected from %s", clientId, c.RemoteAddr())
		}
		defer c.Close()
		// Locks die with the connection.
		defer func() {
			if err := tm.Commit(clientId); err == nil {
				glog.Infof("committed open transaction of client %s", clientId)
			}
		}()
		r.Run(clientId, prompt, c, c)
	}
	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		if err != nil {
			glog.Errorf("accept: %v", err)
			continue
		}
		go handleConn(conn)
	}
}

func main() {
	// glog reads its settings from the Go flag set, which cobra parses through pflag.
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
