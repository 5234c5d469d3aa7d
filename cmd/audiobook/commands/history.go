package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/pkg/cli"
	"github.com/haivivi/audiobook/pkg/journal"
)

var (
	historyLimit     int
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past conversions",
	Long: `Show past conversions, most recent first.

Every conversion is recorded, including failed ones with the stage they
failed in and the intermediate files they left behind.

Examples:
  audiobook history
  audiobook history --limit 5 --json
  audiobook history show 3f2c9a4e-...
  audiobook history delete 3f2c9a4e-...
  audiobook history prune --older-than 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.List(context.Background(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 && !isJSONOutput() {
			fmt.Println("No conversions recorded")
			return nil
		}
		return outputResult(entries)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one conversion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		e, err := j.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		return outputResult(e)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one conversion from the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		if err := j.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Deleted %s", args[0])
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete conversions older than --older-than",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyOlderThan < 0 {
			return fmt.Errorf("--older-than must not be negative")
		}
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		n, err := j.Prune(context.Background(), time.Now().Add(-historyOlderThan))
		if err != nil {
			return err
		}
		cli.PrintSuccess("Pruned %d conversion(s)", n)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of conversions to show (0 for all)")
	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "minimum age of the conversions to delete")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func openJournal() (*journal.Journal, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return journal.Open(cfg.JournalDir())
}
