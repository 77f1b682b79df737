package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/dentsi/dentsi"
)

var errWriteFailed = errors.New("backend rejected the request")

// printWrite prints a write reply and turns an unsuccessful one into an error
func printWrite(cmd *cobra.Command, res dentsi.WriteResult) error {
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	if !res.Success {
		return errWriteFailed
	}
	return nil
}

func newDemoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Simulate a phone call with the voice agent",
	}

	var clinicID, caller string
	start := &cobra.Command{
		Use:   "start",
		Short: "Open a demo call and print the greeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.client.StartDemo(cmd.Context(), clinicID, caller)
			if err := printJSON(cmd, s); err != nil {
				return err
			}
			if !s.Success {
				return errWriteFailed
			}
			return nil
		},
	}
	start.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	start.Flags().StringVar(&caller, "caller", "", "caller phone number")

	var sayClinic string
	say := &cobra.Command{
		Use:   "say SESSION_ID MESSAGE",
		Short: "Send one caller utterance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.client.SendDemoMessage(cmd.Context(), args[0], args[1], sayClinic)
			if err := printJSON(cmd, r); err != nil {
				return err
			}
			if !r.Success {
				return errWriteFailed
			}
			return nil
		},
	}
	say.Flags().StringVar(&sayClinic, "clinic", "", "clinic id")

	cmd.AddCommand(start, say)
	return cmd
}

func newClinicCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Change clinic settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-phone CLINIC_ID PHONE",
			Short: "Assign a phone number to a clinic",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printWrite(cmd, a.client.UpdateClinicPhone(cmd.Context(), args[0], args[1]))
			},
		},
		&cobra.Command{
			Use:   "activate CLINIC_ID",
			Short: "Route inbound demo calls to a clinic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printWrite(cmd, a.client.SetActiveClinic(cmd.Context(), args[0]))
			},
		},
	)
	return cmd
}
