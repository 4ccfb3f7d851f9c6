package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	verbose bool
	runID   string
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "fixforward",
		Short: "Turn a failing test suite into a verified, reversible fix",
		Long: "fixforward runs your tests, classifies the failures, asks a fix generator for a patch, " +
			"applies it on its own branch and re-runs the tests to score the result. " +
			"Every applied patch can be undone with `fixforward rollback`.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			opts.runID = uuid.NewString()
			opts.log = log.With(zap.String("run_id", opts.runID))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.log.Sync()
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug details to stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newDiagnoseCmd(opts))
	cmd.AddCommand(newRollbackCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	return cmd
}

// newLogger builds a production logger on stderr: warnings by default,
// everything with --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Sampling = nil
	return config.Build()
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which kills any running test or generator process group.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, tui.RenderError(err))
	}
	return err
}
