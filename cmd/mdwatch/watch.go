package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sigreer/mdwatch/internal/db"
	"github.com/sigreer/mdwatch/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the status file and record state transitions",
	Long: `Watch blocks on the kernel's change notification for the status file
and re-reads it on every wakeup, printing one line per array state
transition (appeared, vanished, degraded, recovered, sync start/finish)
and recording it to the history database.

The wait is bounded so slowly drifting state (a resync percentage
creeping up) is still sampled between change events.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		timeout, _ := cmd.Flags().GetInt("timeout")
		if timeout <= 0 {
			timeout = cfg.Watch.TimeoutSeconds
		}

		var store *db.DB
		if noDB, _ := cmd.Flags().GetBool("no-db"); !noDB {
			var err error
			store, err = db.New(cfg.DatabasePath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
				os.Exit(1)
			}
			defer store.Close()

			if cfg.Watch.RetentionDays > 0 {
				retention := time.Duration(cfg.Watch.RetentionDays) * 24 * time.Hour
				if err := store.PruneEvents(retention); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				}
			}
		}

		sess := newSession(cfg)
		defer sess.Close()

		w := watch.New(sess, watch.Options{
			Store:            store,
			Out:              os.Stdout,
			ErrOut:           os.Stderr,
			TimeoutSeconds:   timeout,
			ProgressInterval: time.Duration(cfg.Watch.ProgressIntervalSeconds) * time.Second,
			AlertDegraded:    cfg.Alerts.Degraded,
		})
		if err := w.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}
