package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/pageharvest/pageharvest/internal/repository"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs and their status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		db, logger := openStore(ctx)
		defer db.Close(logger)

		jobs, err := repository.NewJobRepository(db, logger)
		if err != nil {
			log.Fatalf("job repository: %v", err)
		}

		pending, err := jobs.ListPending(ctx)
		if err != nil {
			log.Fatalf("list pending: %v", err)
		}
		finished, err := jobs.ListFinished(ctx)
		if err != nil {
			log.Fatalf("list finished: %v", err)
		}

		for _, j := range pending {
			fmt.Printf("%s  %-12s pages=%d created=%s\n",
				j.ID, j.Status, len(j.Pages), j.CreatedAt.Format("2006-01-02T15:04:05"))
		}
		for _, j := range finished {
			finishedAt := ""
			if j.FinishedAt != nil {
				finishedAt = j.FinishedAt.Format("2006-01-02T15:04:05")
			}
			fmt.Printf("%s  %-12s pages=%d finished=%s\n",
				j.ID, j.Status, len(j.Pages), finishedAt)
		}
		fmt.Printf("%d pending, %d finished\n", len(pending), len(finished))
	},
}
