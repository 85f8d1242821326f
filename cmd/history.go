package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or prune stored analysis history",
}

var historyListCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List a user's history entries as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.ListHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(entries), "encode history")
	},
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge <user-id>",
	Short: "Delete all history entries for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteAllHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		zap.L().Info("history purged", zap.String("user_id", args[0]), zap.Int("deleted", n))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPurgeCmd)
	rootCmd.AddCommand(historyCmd)
}
