package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matheus3301/imsgx/internal/bus"
	"github.com/matheus3301/imsgx/internal/pipeline"
	"github.com/matheus3301/imsgx/internal/status"
	"github.com/matheus3301/imsgx/internal/store"
)

const previewLen = 100

func printSummary(counts []store.ServiceCount) {
	if len(counts) == 0 {
		return
	}
	fmt.Println("\nMessage counts:")
	for _, c := range counts {
		fmt.Printf("  %s (%s): %d messages\n", direction(c.IsSent), c.Service, c.Count)
	}
}

func printRecords(records []store.ConversationRecord) {
	for _, r := range records {
		who := "Them"
		if r.IsSent {
			who = "You"
		}
		fmt.Printf("\n%s (%s)\n%s: %s\n", r.FormattedDate, r.Service, who, truncate(r.Text, previewLen))
	}
}

func direction(sent bool) string {
	if sent {
		return "Sent"
	}
	return "Received"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printProgress writes run events to w until stop is closed, then drains
// whatever is already buffered.
func printProgress(w io.Writer, events <-chan bus.Event, stop <-chan struct{}) {
	for {
		select {
		case evt := <-events:
			printEvent(w, evt)
		case <-stop:
			for {
				select {
				case evt := <-events:
					printEvent(w, evt)
				default:
					return
				}
			}
		}
	}
}

func printEvent(w io.Writer, evt bus.Event) {
	switch p := evt.Payload.(type) {
	case status.StageChange:
		_, _ = fmt.Fprintf(w, "%s %s\n", evt.Timestamp.Format("15:04:05"), p.To)
	case pipeline.Progress:
		_, _ = fmt.Fprintf(w, "%s   %s: %d\n", evt.Timestamp.Format("15:04:05"), p.Stage, p.Count)
	}
}
