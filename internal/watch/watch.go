package watch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sigreer/mdwatch/internal/cache"
	"github.com/sigreer/mdwatch/internal/db"
	"github.com/sigreer/mdwatch/internal/mdstat"
)

// Event is one observed array state transition.
type Event struct {
	Devnm    string
	Type     string
	OldState string
	NewState string
	Details  string
}

// Options configures a Watcher. Zero values fall back to stdout,
// stderr and the default progress throttle.
type Options struct {
	Store            *db.DB // nil to only print transitions
	Out              io.Writer
	ErrOut           io.Writer
	TimeoutSeconds   int           // seconds per bounded wait
	ProgressInterval time.Duration // minimum spacing between progress samples per array
	AlertDegraded    bool          // print an alert line on stderr when an array degrades
}

// Watcher follows the status file and records array state transitions.
// Each wakeup from the change notifier (or timeout expiry, to catch
// slow drift) triggers a re-read and a diff against the previous
// snapshot.
type Watcher struct {
	sess          *mdstat.Session
	store         *db.DB
	cache         *cache.Cache
	out           io.Writer
	errOut        io.Writer
	timeout       int
	progressTTL   time.Duration
	alertDegraded bool
	prev          mdstat.Snapshot
}

// New returns a watcher reading through sess.
func New(sess *mdstat.Session, opts Options) *Watcher {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = cache.TTLProgress
	}
	return &Watcher{
		sess:          sess,
		store:         opts.Store,
		cache:         cache.New(),
		out:           opts.Out,
		errOut:        opts.ErrOut,
		timeout:       opts.TimeoutSeconds,
		progressTTL:   opts.ProgressInterval,
		alertDegraded: opts.AlertDegraded,
	}
}

// Run watches until a wait or read fails. The first read is held so the
// session keeps a descriptor for the notifier to block on.
func (w *Watcher) Run() error {
	w.prev = w.sess.Snapshot(true, false)
	if w.prev == nil {
		return errors.New("cannot read " + w.sess.Path())
	}
	w.record(diff(nil, w.prev))
	w.sample(w.prev)

	for {
		switch w.sess.Wait(w.timeout) {
		case mdstat.WaitError:
			return errors.New("wait on " + w.sess.Path() + " failed")
		case mdstat.WaitEvent, mdstat.WaitTimeout:
		}

		if err := w.Step(); err != nil {
			return err
		}
	}
}

// Step performs one re-read/diff/record cycle.
func (w *Watcher) Step() error {
	cur := w.sess.Snapshot(true, false)
	if cur == nil {
		return errors.New("cannot read " + w.sess.Path())
	}

	w.record(diff(w.prev, cur))
	w.sample(cur)
	w.cache.Cleanup()
	w.prev = cur
	return nil
}

// record prints and persists a batch of transitions.
func (w *Watcher) record(events []Event) {
	for _, ev := range events {
		fmt.Fprintf(w.out, "%s  %-8s %-14s %s\n",
			time.Now().Format("2006-01-02 15:04:05"), ev.Devnm, ev.Type, ev.Details)
		if w.alertDegraded && ev.Type == db.EventDegraded {
			fmt.Fprintf(w.errOut, "ALERT: %s degraded: %s\n", ev.Devnm, ev.Details)
		}
		if w.store != nil {
			if err := w.store.RecordEvent(ev.Devnm, ev.Type, ev.OldState, ev.NewState, ev.Details); err != nil {
				fmt.Fprintf(w.out, "record failed: %v\n", err)
			}
		}
	}
}

// sample upserts current array state and writes sync progress samples,
// at most one per array per progress interval.
func (w *Watcher) sample(snap mdstat.Snapshot) {
	if w.store == nil {
		return
	}
	for _, e := range snap {
		if err := w.store.UpsertArray(e.Devnm, e.Level, e.State.String(), e.RaidDisks,
			e.Degraded(), e.Blocks, e.Pattern, e.MetadataVersion, e.Members); err != nil {
			fmt.Fprintf(w.out, "record failed: %v\n", err)
		}

		if e.Sync != mdstat.SyncInProgress {
			continue
		}
		key := "progress:" + e.Devnm
		if w.cache.Get(key) != nil {
			continue
		}
		if err := w.store.RecordProgress(e.Devnm, e.SyncKind.String(), e.SyncPercent); err != nil {
			fmt.Fprintf(w.out, "record failed: %v\n", err)
			continue
		}
		w.cache.Set(key, e.SyncPercent, w.progressTTL)
	}
}

// diff computes the transitions between two snapshots. A nil prev
// treats everything in cur as newly appeared.
func diff(prev, cur mdstat.Snapshot) []Event {
	var events []Event

	for _, c := range cur {
		p := prev.Find(c.Devnm)
		if p == nil {
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventAppeared,
				NewState: c.State.String(),
				Details:  describeArray(c),
			})
			continue
		}

		if p.State != c.State {
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventStateChanged,
				OldState: p.State.String(),
				NewState: c.State.String(),
				Details:  p.State.String() + " -> " + c.State.String(),
			})
		}

		pd, cd := p.Degraded(), c.Degraded()
		switch {
		case cd > pd:
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventDegraded,
				OldState: p.State.String(),
				NewState: c.State.String(),
				Details:  fmt.Sprintf("%d of %d slots down [%s]", cd, c.RaidDisks, c.Pattern),
			})
		case cd < pd:
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventRecovered,
				OldState: p.State.String(),
				NewState: c.State.String(),
				Details:  fmt.Sprintf("%d of %d slots down [%s]", cd, c.RaidDisks, c.Pattern),
			})
		}

		if p.Sync == mdstat.SyncNone && c.Sync != mdstat.SyncNone {
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventSyncStarted,
				OldState: p.State.String(),
				NewState: c.State.String(),
				Details:  c.SyncKind.String() + " " + syncDetail(c),
			})
		}
		if p.Sync != mdstat.SyncNone && c.Sync == mdstat.SyncNone {
			events = append(events, Event{
				Devnm:    c.Devnm,
				Type:     db.EventSyncFinished,
				OldState: p.State.String(),
				NewState: c.State.String(),
				Details:  p.SyncKind.String(),
			})
		}
	}

	for _, p := range prev {
		if cur.Find(p.Devnm) == nil {
			events = append(events, Event{
				Devnm:    p.Devnm,
				Type:     db.EventVanished,
				OldState: p.State.String(),
			})
		}
	}

	return events
}

func describeArray(e *mdstat.ArrayStatus) string {
	s := e.State.String()
	if e.Level != "" {
		s += " " + e.Level
	}
	if e.Pattern != "" {
		s += " [" + e.Pattern + "]"
	}
	return s
}

func syncDetail(e *mdstat.ArrayStatus) string {
	if e.Sync == mdstat.SyncInProgress {
		return fmt.Sprintf("%d%%", e.SyncPercent)
	}
	return e.Sync.String()
}
