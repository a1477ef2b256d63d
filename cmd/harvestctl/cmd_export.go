package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pageharvest/pageharvest/internal/export"
	"github.com/pageharvest/pageharvest/internal/repository"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export finished jobs to an XLSX workbook",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		db, logger := openStore(ctx)
		defer db.Close(logger)

		jobs, err := repository.NewJobRepository(db, logger)
		if err != nil {
			log.Fatalf("job repository: %v", err)
		}

		data, err := export.NewService(jobs, logger).ExportJobsXLSX(ctx)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			log.Fatalf("write %s: %v", exportOut, err)
		}
		log.Printf("wrote %s (%d bytes)", exportOut, len(data))
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "jobs.xlsx", "output workbook path")
}
