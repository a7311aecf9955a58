package watch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/mdwatch/internal/cache"
	"github.com/sigreer/mdwatch/internal/db"
	"github.com/sigreer/mdwatch/internal/mdstat"
)

func snap(t *testing.T, text string) mdstat.Snapshot {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdstat")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	s := mdstat.NewSession(path)
	defer s.Close()
	got := s.Snapshot(false, false)
	require.NotNil(t, got)
	return got
}

func eventTypes(events []Event) []string {
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestDiffAppeared(t *testing.T) {
	cur := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")

	events := diff(nil, cur)
	require.Len(t, events, 1)
	assert.Equal(t, db.EventAppeared, events[0].Type)
	assert.Equal(t, "md0", events[0].Devnm)
	assert.Contains(t, events[0].Details, "raid1")
}

func TestDiffVanished(t *testing.T) {
	prev := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")

	events := diff(prev, mdstat.Snapshot{})
	require.Len(t, events, 1)
	assert.Equal(t, db.EventVanished, events[0].Type)
}

func TestDiffDegradedAndRecovered(t *testing.T) {
	healthy := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")
	degraded := snap(t, "md0 : active raid1 sda1[0] 10 blocks [2/1] [U_]\n")

	events := diff(healthy, degraded)
	assert.Equal(t, []string{db.EventDegraded}, eventTypes(events))

	events = diff(degraded, healthy)
	assert.Equal(t, []string{db.EventRecovered}, eventTypes(events))
}

func TestDiffSyncLifecycle(t *testing.T) {
	idle := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")
	syncing := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU] resync=42%\n")

	events := diff(idle, syncing)
	require.Len(t, events, 1)
	assert.Equal(t, db.EventSyncStarted, events[0].Type)
	assert.Contains(t, events[0].Details, "resync 42%")

	events = diff(syncing, idle)
	require.Len(t, events, 1)
	assert.Equal(t, db.EventSyncFinished, events[0].Type)
}

func TestDiffInactiveTransition(t *testing.T) {
	active := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")
	inactive := snap(t, "md0 : inactive sda1[0]\n")

	events := diff(active, inactive)
	assert.Contains(t, eventTypes(events), db.EventStateChanged)
}

func TestStepRecordsToStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdstat")
	require.NoError(t, os.WriteFile(path, []byte("md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU] recovery=10%\n"), 0644))

	store, err := db.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	sess := mdstat.NewSession(path)
	defer sess.Close()

	var out bytes.Buffer
	w := New(sess, Options{Store: store, Out: &out, TimeoutSeconds: 1})

	// first snapshot: md0 appears and a progress sample is taken
	w.prev = w.sess.Snapshot(true, false)
	require.NotNil(t, w.prev)
	w.record(diff(nil, w.prev))
	w.sample(w.prev)

	require.NoError(t, os.WriteFile(path, []byte("md0 : active raid1 sda1[0] 10 blocks [2/1] [U_]\n"), 0644))
	require.NoError(t, w.Step())

	events, err := store.RecentEvents(10)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.Contains(t, types, db.EventAppeared)
	assert.Contains(t, types, db.EventDegraded)
	assert.Contains(t, types, db.EventSyncFinished)

	rec, err := store.GetArray("md0")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Degraded)

	assert.True(t, strings.Contains(out.String(), "md0"))
}

func TestProgressIntervalConfigured(t *testing.T) {
	sess := mdstat.NewSession("")

	w := New(sess, Options{ProgressInterval: 25 * time.Millisecond})
	assert.Equal(t, 25*time.Millisecond, w.progressTTL)

	w = New(sess, Options{})
	assert.Equal(t, cache.TTLProgress, w.progressTTL)
}

func TestSampleThrottleFollowsInterval(t *testing.T) {
	dir := t.TempDir()
	store, err := db.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	syncing := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU] resync=42%\n")

	sess := mdstat.NewSession("")
	w := New(sess, Options{Store: store, ProgressInterval: 20 * time.Millisecond})

	w.sample(syncing)
	assert.NotNil(t, w.cache.Get("progress:md0"))

	// once the configured interval passes the throttle opens again
	time.Sleep(40 * time.Millisecond)
	assert.Nil(t, w.cache.Get("progress:md0"))

	w.sample(syncing)
	assert.NotNil(t, w.cache.Get("progress:md0"))
}

func TestDegradedAlertLine(t *testing.T) {
	healthy := snap(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU]\n")
	degraded := snap(t, "md0 : active raid1 sda1[0] 10 blocks [2/1] [U_]\n")

	sess := mdstat.NewSession("")

	var out, alerts bytes.Buffer
	w := New(sess, Options{Out: &out, ErrOut: &alerts, AlertDegraded: true})
	w.record(diff(healthy, degraded))
	assert.Contains(t, alerts.String(), "ALERT: md0 degraded")

	alerts.Reset()
	w = New(sess, Options{Out: &out, ErrOut: &alerts})
	w.record(diff(healthy, degraded))
	assert.Empty(t, alerts.String())
}
