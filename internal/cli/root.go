// Package cli implements the dentsi terminal client: each command reads or
// writes one backend resource and prints it as indented JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/dentsi/dentsi"
	"github.com/briangreenhill/dentsi/internal/config"
	"github.com/briangreenhill/dentsi/internal/logging"
)

// app carries what every subcommand needs once the root has run
type app struct {
	client *dentsi.Client
	log    zerolog.Logger
	limits struct {
		appointments int
		calls        int
	}
}

// NewRootCmd creates the root command. Flags override the DENTSI_* environment.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var (
		apiBase string
		timeout time.Duration
		debug   bool
	)

	cmd := &cobra.Command{
		Use:           "dentsi",
		Short:         "Query the dental voice-agent backend",
		Long:          "dentsi reads clinic, appointment and call data from the voice-agent backend and drives demo calls.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Is the backend up?
  dentsi health

  # Today's appointments for one clinic
  dentsi appointments --clinic c1 --limit 10

  # Talk to the agent
  dentsi demo start --clinic c1
  dentsi demo say <session-id> "Can I book a cleaning on Tuesday?"`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logCfg := config.LogConfig{Level: "warn", Format: "console"}
			if debug {
				logCfg.Level = "debug"
			}
			a.log = logging.New(cmd.ErrOrStderr(), logCfg)

			if cmd.Flags().Changed("api-base") {
				cfg.Backend.BaseURL = apiBase
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Backend.RequestTimeout = timeout
			}
			a.limits.appointments = cfg.Backend.AppointmentsLimit
			a.limits.calls = cfg.Backend.CallsLimit

			// one-shot process, nothing to cache between commands
			a.client, err = dentsi.New(cfg.Backend.BaseURL,
				dentsi.WithCache(nil, 0),
				dentsi.WithTimeout(cfg.Backend.RequestTimeout),
				dentsi.WithDemoTimeout(cfg.Backend.DemoTimeout),
				dentsi.WithLogger(a.log),
			)
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&apiBase, "api-base", dentsi.DefaultBaseURL, "backend base URL (overrides DENTSI_API_BASE)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", dentsi.DefaultTimeout, "per-request timeout (overrides DENTSI_REQUEST_TIMEOUT)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newHealthCmd(a),
		newClinicsCmd(a),
		newStatsCmd(a),
		newAppointmentsCmd(a),
		newCallsCmd(a),
		newCallLogCmd(a),
		newEscalationsCmd(a),
		newPatientsCmd(a),
		newOverviewCmd(a),
		newDemoCmd(a),
		newClinicCmd(a),
	)
	return cmd
}

// Execute runs the root command and reports errors on stderr
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// printResult prints a read result, warning on stderr when it is a fallback.
// A fallback is not an error: the command still exits 0.
func printResult[T any](cmd *cobra.Command, what string, res dentsi.Result[T]) error {
	if res.Fallback {
		cmd.PrintErrf("Warning: backend unavailable, showing empty %s\n", what)
	}
	return printJSON(cmd, res.Value)
}
