package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Inspect lead and account state in the CRM",
}

var leadGetCmd = &cobra.Command{
	Use:   "get <lead-id>",
	Short: "Print the form prefill data for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := newEngine().LeadData(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "lead get")
		}
		out, err := json.MarshalIndent(sub, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode lead data")
		}
		cmd.Println(string(out))
		return nil
	},
}

var leadAccountCmd = &cobra.Command{
	Use:   "account <lead-id>",
	Short: "Print the account originated by a lead, mirroring its attachments locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := newEngine().AccountSnapshot(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "lead account")
		}
		if snapshot == nil {
			cmd.Println("no account for lead")
			return nil
		}
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode account snapshot")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	leadCmd.AddCommand(leadGetCmd, leadAccountCmd)
	rootCmd.AddCommand(leadCmd)
}
