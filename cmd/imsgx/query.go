package main

import (
	"fmt"
	"time"

	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/merge"
	"github.com/matheus3301/imsgx/internal/pipeline"
	"github.com/matheus3301/imsgx/internal/store"
	"github.com/spf13/cobra"
)

func handlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handles <phone-or-email>",
		Short: "List the handles a search term resolves to, best first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), params(), func(pl *pipeline.Pipeline, _ *config.Config) error {
				handles, err := pl.Handles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(handles)
				}
				for _, h := range handles {
					fmt.Printf("%-6d %-30s %-9s %d messages\n", h.RowID, h.Address, h.Service, h.MessageCount)
				}
				return nil
			})
		},
	}
}

func showCmd() *cobra.Command {
	var (
		from, to string
		recent   int
		limit    int
		summary  bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the extracted conversation",
		Long: `Prints conversation_clean oldest first. --from and --to take dates
(2006-01-02) or date-times (2006-01-02 15:04) in the configured zone and filter
on the stored native timestamp; --to is exclusive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPipeline(cmd.Context(), params(), func(pl *pipeline.Pipeline, cfg *config.Config) error {
				db := pl.Store()
				if summary {
					counts, err := db.Summary()
					if err != nil {
						return err
					}
					run, err := db.LatestRun()
					if err != nil {
						return err
					}
					if jsonOut {
						return outputJSON(map[string]any{"counts": counts, "latest_run": run})
					}
					if run != nil {
						fmt.Printf("Last run %s for %q: %d inserted, %d skipped at %s\n",
							run.ID, run.Term, run.Inserted, run.Skipped, run.FinishedAt.Format(time.RFC3339))
					}
					printSummary(counts)
					return nil
				}

				records, err := selectRecords(db, cfg, from, to, recent, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(records)
				}
				printRecords(records)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date to include")
	cmd.Flags().StringVar(&to, "to", "", "date to stop before")
	cmd.Flags().IntVar(&recent, "recent", 0, "show only the N newest messages")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages to show (default all)")
	cmd.Flags().BoolVar(&summary, "summary", false, "show message counts by direction and service")
	return cmd
}

func selectRecords(db *store.DB, cfg *config.Config, from, to string, recent, limit int) ([]store.ConversationRecord, error) {
	if recent > 0 {
		return db.Recent(recent)
	}
	if from == "" && to == "" {
		return db.ListConversation(limit, 0)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	lo, hi := int64(-1<<63), int64(1<<63-1)
	if from != "" {
		t, err := parseDate(from, loc)
		if err != nil {
			return nil, err
		}
		lo = merge.NativeFromTime(t)
	}
	if to != "" {
		t, err := parseDate(to, loc)
		if err != nil {
			return nil, err
		}
		hi = merge.NativeFromTime(t)
	}
	return db.Range(lo, hi)
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04", merge.DateLayout}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q: want YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
}

func searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find extracted messages containing a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), params(), func(pl *pipeline.Pipeline, _ *config.Config) error {
				records, err := pl.Store().Search(args[0], limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(records)
				}
				if len(records) == 0 {
					fmt.Println("No messages found.")
					return nil
				}
				fmt.Printf("Found %d messages:\n", len(records))
				printRecords(records)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results")
	return cmd
}
