package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity [investigation-id]",
	Short: "Show recent pipeline activity events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runActivity,
}

func init() {
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "l", 50, "number of events to show")
}

func runActivity(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(context.Background())
	if err != nil {
		return err
	}
	defer rt.Close()

	events := rt.activity.Recent(activityLimit)
	if len(args) == 1 {
		events = rt.activity.RecentFor(args[0], activityLimit)
	}
	if len(events) == 0 {
		fmt.Println("No activity recorded in this process.")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-20s %-24s %s\n",
			e.Timestamp.Format("15:04:05"), e.Agent, e.Step, e.InvestigationID)
	}
	return nil
}
