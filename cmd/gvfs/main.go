// Command gvfs reports the hydration health of a VFS for Git enlistment and
// publishes baseline manifests.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
	"github.com/c4fun/VFSForGit/internal/scope"
)

// errUsage marks command line errors.
var errUsage = errors.New("usage error")

// cliError replaces the message of a wrapped error.
type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code: 0 on
// success, 2 for invalid arguments, 1 for every other failure.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	defer logging.Sync()

	if a.metricsTextfile != "" {
		if mErr := metrics.WriteTextfile(a.metricsTextfile); mErr != nil {
			logging.Warn("write metrics textfile", logging.String("path", a.metricsTextfile), logging.Err(mErr))
		}
	}

	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	if errors.Is(err, scope.ErrInvalidArgument) || errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
