package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sigreer/mdwatch/internal/cache"
	"github.com/sigreer/mdwatch/internal/mdstat"
	"github.com/spf13/cobra"
)

// snaps lets the read-only commands share one parse per cache window
var snaps = cache.NewSnapshots()

type arrayJSON struct {
	Devnm     string   `json:"devnm"`
	Level     string   `json:"level,omitempty"`
	State     string   `json:"state"`
	RaidDisks int      `json:"raid_disks"`
	Degraded  int      `json:"degraded"`
	Blocks    int64    `json:"blocks"`
	Pattern   string   `json:"pattern,omitempty"`
	Sync      string   `json:"sync,omitempty"`
	Metadata  string   `json:"metadata,omitempty"`
	Members   []string `json:"members"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show array states, members and sync progress",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOut, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		sess := newSession(cfg)
		defer sess.Close()

		snap := snaps.Take(sess, false)
		if snap == nil {
			fmt.Fprintf(os.Stderr, "Error reading %s\n", sess.Path())
			os.Exit(1)
		}

		if jsonOut {
			printJSON(snap)
			return
		}
		printStatus(snap)
	},
}

func printJSON(snap mdstat.Snapshot) {
	out := make([]arrayJSON, 0, len(snap))
	for _, e := range snap {
		a := arrayJSON{
			Devnm:     e.Devnm,
			Level:     e.Level,
			State:     e.State.String(),
			RaidDisks: e.RaidDisks,
			Degraded:  e.Degraded(),
			Blocks:    e.Blocks,
			Pattern:   e.Pattern,
			Metadata:  e.MetadataVersion,
			Members:   e.Members,
		}
		if e.Sync != mdstat.SyncNone {
			a.Sync = syncColumn(e)
		}
		out = append(out, a)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func printStatus(snap mdstat.Snapshot) {
	if len(snap) == 0 {
		fmt.Println("No arrays")
		return
	}

	fmt.Printf("%-8s %-8s %-10s %-8s %-10s %-12s %s\n",
		"DEVICE", "LEVEL", "STATE", "SLOTS", "SIZE", "SYNC", "MEMBERS")

	for _, e := range snap {
		level := e.Level
		if level == "" {
			level = "-"
		}

		slots := "-"
		if e.Pattern != "" {
			slots = "[" + e.Pattern + "]"
		}

		size := "-"
		if e.Blocks > 0 {
			size = humanize.IBytes(uint64(e.Blocks) * 1024)
		}

		members := ""
		for i, m := range e.Members {
			if i > 0 {
				members += " "
			}
			members += m
		}

		fmt.Printf("%-8s %-8s %-10s %-8s %-10s %-12s %s\n",
			e.Devnm, level, e.State, slots, size, syncColumn(e), members)
	}
}

// syncColumn formats the background operation for one display cell
func syncColumn(e *mdstat.ArrayStatus) string {
	switch e.Sync {
	case mdstat.SyncNone:
		return "-"
	case mdstat.SyncInProgress:
		return fmt.Sprintf("%s %d%%", e.SyncKind, e.SyncPercent)
	}
	return fmt.Sprintf("%s %s", e.SyncKind, e.Sync)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List array device names",
	Run: func(cmd *cobra.Command, args []string) {
		startOrder, _ := cmd.Flags().GetBool("start-order")
		cfg := loadConfig()

		sess := newSession(cfg)
		defer sess.Close()

		snap := snaps.Take(sess, startOrder)
		if snap == nil {
			fmt.Fprintf(os.Stderr, "Error reading %s\n", sess.Path())
			os.Exit(1)
		}

		for _, e := range snap {
			fmt.Println(e.Devnm)
		}
	},
}

var busyCmd = &cobra.Command{
	Use:   "busy <devnm>",
	Short: "Check whether an array device currently exists",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		sess := newSession(cfg)
		defer sess.Close()

		if sess.Busy(args[0]) {
			fmt.Printf("%s is busy\n", args[0])
			return
		}
		fmt.Printf("%s is not in use\n", args[0])
		os.Exit(1)
	},
}
