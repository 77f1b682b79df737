package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/dentsi/dentsi"
	"github.com/briangreenhill/dentsi/internal/dashboard"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, "health", a.client.Health(cmd.Context()))
		},
	}
}

func newClinicsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clinics",
		Short: "List clinics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, "clinic list", a.client.Clinics(cmd.Context()))
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var clinicID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, "stats", a.client.Stats(cmd.Context(), clinicID))
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	return cmd
}

// listFlags registers the shared list filters and returns the options they fill
func listFlags(cmd *cobra.Command, filter, filterHelp string) *dentsi.ListOptions {
	opts := &dentsi.ListOptions{}
	cmd.Flags().StringVar(&opts.ClinicID, "clinic", "", "clinic id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = configured default)")
	switch filter {
	case "status":
		cmd.Flags().StringVar(&opts.Status, "status", "", filterHelp)
	case "type":
		cmd.Flags().StringVar(&opts.Type, "type", "", filterHelp)
	}
	return opts
}

func limitOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

func newAppointmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List appointments",
		Args:  cobra.NoArgs,
	}
	opts := listFlags(cmd, "status", "scheduled, confirmed, cancelled or completed")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o := *opts
		o.Limit = limitOr(o.Limit, a.limits.appointments)
		return printResult(cmd, "appointment list", a.client.Appointments(cmd.Context(), o))
	}
	return cmd
}

func newCallsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List calls handled by the agent",
		Args:  cobra.NoArgs,
	}
	opts := listFlags(cmd, "status", "completed, failed, callback or escalated")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o := *opts
		o.Limit = limitOr(o.Limit, a.limits.calls)
		return printResult(cmd, "call list", a.client.Calls(cmd.Context(), o))
	}
	return cmd
}

func newCallLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call-log",
		Short: "Dump the raw call log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, "call log", a.client.RecentCalls(cmd.Context()))
		},
	}
}

func newEscalationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List calls waiting on staff",
		Args:  cobra.NoArgs,
	}
	opts := listFlags(cmd, "type", "callback or escalated")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o := *opts
		o.Limit = limitOr(o.Limit, a.limits.calls)
		return printResult(cmd, "escalation list", a.client.Escalations(cmd.Context(), o))
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve ESCALATION_ID",
		Short: "Mark an escalation as handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWrite(cmd, a.client.ResolveEscalation(cmd.Context(), args[0]))
		},
	})
	return cmd
}

func newPatientsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patients",
		Short: "List patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd, "patient list", a.client.Patients(cmd.Context()))
		},
	}
}

func newOverviewCmd(a *app) *cobra.Command {
	var clinicID string
	var withHealth bool
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Everything the dashboard front page shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ov := dashboard.Build(cmd.Context(), a.client, clinicID, dashboard.Limits{
				Appointments: a.limits.appointments,
				Calls:        a.limits.calls,
			})
			switch {
			case ov.Offline:
				cmd.PrintErrln("Warning: backend offline, showing demo data")
			case ov.DemoMode():
				cmd.PrintErrf("Warning: demo mode, fell back for %s\n", strings.Join(ov.Degraded, ", "))
			}
			if !withHealth {
				return printJSON(cmd, ov)
			}
			health := a.client.DashboardHealth(cmd.Context(), clinicID)
			return printJSON(cmd, struct {
				dashboard.Overview
				CallHealth dentsi.DashboardHealth `json:"callHealth"`
			}{ov, health.Value})
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	cmd.Flags().BoolVar(&withHealth, "health", false, "include the call-quality summary")
	return cmd
}
