package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
)

var eventsCmd = &cobra.Command{
	Use:   "events [internal-po]",
	Short: "Show recorded ledger events, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		eventType, _ := cmd.Flags().GetString("type")

		req := &list_events.Request{Limit: limit}
		if len(args) == 1 {
			req.AggregateID = &args[0]
		}
		if eventType != "" {
			req.EventType = &eventType
		}

		resp, err := svc.ListEvents.Execute(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(resp.Events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		for i, e := range resp.Events {
			fmt.Fprintf(out, "%d. %s %s %s (%s) %s\n",
				i+1, e.CreatedAt.Format(time.RFC3339), e.EventType, e.AggregateID, e.Status, e.Payload)
		}
		fmt.Fprintf(out, "\nShowing %d of %d events\n", len(resp.Events), resp.TotalCount)
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int("limit", 10, "Maximum events to show")
	eventsCmd.Flags().String("type", "", "Only this event type (e.g. unit.status_changed)")
}
