package main

import (
	"fmt"
	"os"

	"github.com/sigreer/mdwatch/internal/db"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent array state transitions from the history database",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		cfg := loadConfig()

		store, err := db.New(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		events, err := store.RecentEvents(limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if len(events) == 0 {
			fmt.Println("No events recorded")
			return
		}

		for _, ev := range events {
			fmt.Printf("%s  %-8s %-14s %s\n",
				ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Devnm, ev.EventType, ev.Details)
		}
	},
}
