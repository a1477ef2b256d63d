package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pageharvest/pageharvest/internal/repository"
)

var enqueueFromFile string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [page-url...]",
	Short: "Enqueue a pending extraction job",
	Long: "Enqueue a job whose payload is the ordered list of page references,\n" +
		"given either as arguments or as a JSON array file via --file.",
	Run: func(cmd *cobra.Command, args []string) {
		pages := args
		if enqueueFromFile != "" {
			data, err := os.ReadFile(enqueueFromFile)
			if err != nil {
				log.Fatalf("read payload file: %v", err)
			}
			if err := json.Unmarshal(data, &pages); err != nil {
				log.Fatalf("parse payload file: %v", err)
			}
		}
		if len(pages) == 0 {
			log.Fatal("no pages given: pass page URLs as arguments or --file pages.json")
		}

		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		db, logger := openStore(ctx)
		defer db.Close(logger)

		jobs, err := repository.NewJobRepository(db, logger)
		if err != nil {
			log.Fatalf("job repository: %v", err)
		}
		id, err := jobs.Enqueue(ctx, pages)
		if err != nil {
			log.Fatalf("enqueue: %v", err)
		}
		log.Printf("enqueued job %s (%d pages)", id, len(pages))
	},
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueueFromFile, "file", "f", "", "JSON array file with page references")
}
