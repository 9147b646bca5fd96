// Package cli wires the command surface: one subcommand per session or
// execution operation, with flag parsing, retry wiring and exit-code
// passthrough.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/config"
	"github.com/natefield/sshmux/internal/logger"
	"github.com/natefield/sshmux/internal/probe"
	"github.com/natefield/sshmux/internal/remote"
	"github.com/natefield/sshmux/internal/retry"
	"github.com/natefield/sshmux/internal/session"
)

// Global flags
var (
	configFlag   string
	identityFlag string
	portFlag     int
)

var rootCmd = &cobra.Command{
	Use:   "sshmux",
	Short: "Persistent multiplexed sessions for remote execution",
	Long: `sshmux keeps one authenticated session per remote endpoint alive in the
background and reuses it for every command and file transfer, so repeated
operations skip connection setup and authentication entirely.

Sessions are addressed as [user@]host[:port]; missing pieces resolve from
~/.ssh/config. Failed operations retry with exponential backoff unless the
failure is classified fatal.

Examples:
  sshmux connect ubuntu@10.0.0.5
  sshmux exec ubuntu@10.0.0.5 "uname -a"
  sshmux copy ubuntu@10.0.0.5 to ./build.tar.gz /tmp/build.tar.gz
  sshmux batch ubuntu@10.0.0.5 -f deploy.yaml
  sshmux list`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitCodeError carries a remote exit code through cobra's error path so
// the process exits with the same code the remote command did.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Execute runs the root command. Interrupts cancel in-flight operations
// and exit 130; remote exit codes pass through unchanged.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}

	var exitErr *ExitCodeError
	if stderrors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, err)
	if ctx.Err() != nil {
		os.Exit(130)
	}
	os.Exit(1)
}

// app holds the assembled subsystems for one command invocation.
type app struct {
	cfg       *config.Config
	sessions  *session.Manager
	remote    *remote.Executor
	commands  *retry.Engine
	transfers *retry.Engine
}

// newApp loads configuration and assembles the session manager, executor
// and retry engines.
func newApp() (*app, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(cfg, nil, nil)
	mgr.IdentityFile = identityFlag
	mgr.SetDiagnoser(probe.New(cfg.ConnectTimeout))

	retryLog := logger.NewEnvLogger("[retry]")
	return &app{
		cfg:       cfg,
		sessions:  mgr,
		remote:    remote.NewExecutor(mgr, nil),
		commands:  retry.NewEngine(retry.NewPolicy(cfg.Retry.Command), retryLog),
		transfers: retry.NewEngine(retry.NewPolicy(cfg.Retry.Transfer), retryLog),
	}, nil
}

// parseTarget resolves a [user@]host[:port] spec, with --port overriding
// the resolved port.
func parseTarget(spec string) (session.Identity, error) {
	id, err := session.ParseIdentity(spec)
	if err != nil {
		return id, err
	}
	if portFlag > 0 {
		id.Port = portFlag
	}
	return id, nil
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for sshmux.

Examples:
  # Bash
  sshmux completion bash > /etc/bash_completion.d/sshmux

  # Zsh
  sshmux completion zsh > "${fpath[1]}/_sshmux"

  # Fish
  sshmux completion fish > ~/.config/fish/completions/sshmux.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		default:
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.config/sshmux/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&identityFlag, "identity", "i", "", "private key file for authentication")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "remote port (overrides target spec and ssh config)")

	rootCmd.AddCommand(completionCmd)
}
