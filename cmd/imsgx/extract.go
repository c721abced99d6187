package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/pipeline"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var (
		workers     int
		placeholder string
		quiet       bool
	)
	cmd := &cobra.Command{
		Use:   "extract <phone-or-email>",
		Short: "Extract the conversation with a contact into conversation_clean",
		Long: `Finds every handle whose address matches the search term, merges the messages
exchanged with those handles in time order and replaces conversation_clean with
the result. Previous output is only replaced if the whole write succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := params()
			p.Overrides.DecodeWorkers = workers
			if cmd.Flags().Changed("placeholder") {
				p.Overrides.Placeholder = &placeholder
			}
			return withPipeline(cmd.Context(), p, func(pl *pipeline.Pipeline, _ *config.Config) error {
				if !quiet && !jsonOut {
					events, unsub := pl.Events(32)
					stop, done := make(chan struct{}), make(chan struct{})
					go func() {
						defer close(done)
						printProgress(cmd.ErrOrStderr(), events, stop)
					}()
					defer func() {
						close(stop)
						<-done
						unsub()
					}()
				}
				res, err := pl.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(res)
				}
				printResult(res)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel attributedBody decoders (default GOMAXPROCS)")
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "text to put where an inline attachment was (default: drop it)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress to stderr")
	return cmd
}

func printResult(res *pipeline.Result) {
	fmt.Println("Found handles:")
	for _, h := range res.Handles {
		fmt.Printf("  ID: %d, Handle: %s, Service: %s, Messages: %d\n", h.RowID, h.Address, h.Service, h.MessageCount)
	}
	fmt.Printf("\nPrimary handle %d: %s (%s) with %d messages\n",
		res.Primary.RowID, res.Primary.Address, res.Primary.Service, res.Primary.MessageCount)

	fmt.Printf("\nInserted %d messages, skipped %d (run %s)\n", res.Run.Inserted, res.Run.Skipped, res.Run.ID)
	if len(res.Stats.DecodeFailures) > 0 {
		var parts []string
		for _, kind := range slices.Sorted(maps.Keys(res.Stats.DecodeFailures)) {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, res.Stats.DecodeFailures[kind]))
		}
		fmt.Printf("Undecodable attributedBody: %s\n", strings.Join(parts, ", "))
	}

	printSummary(res.Summary)

	if len(res.Recent) > 0 {
		fmt.Println("\nRecent messages:")
		printRecords(res.Recent)
	}
}
