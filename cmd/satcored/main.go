// Command satcored runs the satcore ingestion scheduler and its maintenance
// tasks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

// options are the flags shared by every subcommand.
type options struct {
	envFiles []string
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := rootCommand(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "satcored: %v\n", err); writeErr != nil {
			return 3
		}
		return 1
	}
	return 0
}

func rootCommand(stdout io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "satcored",
		Short:         "Satellite catalog and OceanColor ingestion daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading SATCORE_* variables")
	root.AddCommand(
		serveCommand(opts),
		migrateCommand(opts),
		seedCommand(opts, stdout),
	)
	return root
}
