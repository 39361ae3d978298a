package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PrintReady/internal/logger"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "printready: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printready",
		Short: "PrintReady render CLI",
		Long: `printready resolves print specifications, preflights artwork and renders
print-ready TIFF/PDF files locally, and enqueues renders on the shared task queue.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	cmd.AddCommand(
		newResolveCmd(),
		newPreflightCmd(),
		newRenderCmd(),
		newEnqueueCmd(),
		newInspectCmd(),
		newRunCmd(),
	)
	return cmd
}

func cliLogger(cmd *cobra.Command) *logger.Logger {
	if !verbose {
		return logger.Discard()
	}
	return logger.New(logger.Config{Level: "debug", Format: "text", Output: cmd.ErrOrStderr()})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
