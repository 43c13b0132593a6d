package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, newRootCmd(), os.Stderr)
}

// execute runs root and reports a failure as a single line on stderr. The
// root command silences cobra's own error and usage output.
func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// setupLog installs the command logger on cmd's context: text records on
// stderr at level, plus JSON records appended to file when file is set.
// The returned closer releases the log file.
func setupLog(cmd *cobra.Command, level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var (
		fileW  io.Writer
		closer io.Closer = nopCloser{}
	)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", file, err)
		}
		fileW, closer = f, f
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.Setup(ctx, cmd.ErrOrStderr(), lvl, fileW))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
