package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newScheduleProductionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule-production",
		Short: "Start the production clock for every player without a pending tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ids, err := a.services.Resource.ScheduleProductionForAll(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Scheduled production for %d players\n", len(ids))
			return nil
		},
	}
}

func newReapJobsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap-jobs",
		Short: "Return jobs held past their timeout to the pending state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.queue.ReapStale(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Reaped %d stale jobs\n", n)
			return nil
		},
	}
}
