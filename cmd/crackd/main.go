// crackd is the command-line companion to the mentor server: a local chat
// REPL and a catalog browser.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	catalogPath string
	noColor     bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "crackd",
		Short: "Guided problem-solving mentor",
		Long: `crackd coaches you through coding interview problems with questions,
not answers.

Available subcommands:
  chat     - Talk to the mentor in your terminal
  problems - List or search the problem catalog`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", os.Getenv("CATALOG_PATH"), "rule catalog YAML (default: embedded)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log rule matches to stderr")

	root.AddCommand(newChatCmd(opts), newProblemsCmd(opts))
	return root
}

func (o *rootOptions) logger(stderr io.Writer) *slog.Logger {
	if !o.verbose {
		stderr = io.Discard
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		stop()
		os.Exit(1)
	}
}
