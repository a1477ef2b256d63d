package main

import (
	"log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the store schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		db, logger := openStore(ctx)
		defer db.Close(logger)

		if err := db.Migrate(ctx, logger); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("schema up to date")
	},
}
