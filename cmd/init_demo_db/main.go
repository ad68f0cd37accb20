package main

import (
	"log"

	"github.com/spf13/cobra"

	"schemameta/db"
)

const defaultDBPath = "webshop.db"

func main() {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "init_demo_db",
		Short: "Create a demo web shop SQLite database to try dump_ddl and generate_metadata",
		Run: func(cmd *cobra.Command, args []string) {
			gdb, err := db.OpenSQLite(dbPath)
			if err != nil {
				log.Fatalf("Failed to open database: %v", err)
			}
			if err := db.CreateDemoSchema(gdb); err != nil {
				log.Fatalf("Failed to initialize database: %v", err)
			}
			log.Printf("Demo database initialized successfully at %s", dbPath)
			log.Printf("Tables: %v", db.DemoTables)
		},
	}
	rootCmd.Flags().StringVar(&dbPath, "db", defaultDBPath, "Path to SQLite database file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}
