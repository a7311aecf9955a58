package cache

import (
	"strconv"

	"github.com/sigreer/mdwatch/internal/mdstat"
)

// Snapshots caches parsed status reads so closely spaced read-only
// queries within one process reuse a single parse
type Snapshots struct {
	c *Cache
}

// NewSnapshots creates an empty snapshot cache
func NewSnapshots() *Snapshots {
	return &Snapshots{c: New()}
}

// Take returns a recent snapshot if one is cached, otherwise reads a
// fresh one through sess. Callers get their own slice, so splicing
// entries out of it does not disturb the cached copy. Returns nil when
// the read fails; failed reads are not cached.
func (s *Snapshots) Take(sess *mdstat.Session, start bool) mdstat.Snapshot {
	key := "snapshot:" + strconv.FormatBool(start)
	if v := s.c.Get(key); v != nil {
		return append(mdstat.Snapshot(nil), v.(mdstat.Snapshot)...)
	}

	snap := sess.Snapshot(false, start)
	if snap == nil {
		return nil
	}
	s.c.Set(key, snap, TTLSnapshot)
	return append(mdstat.Snapshot(nil), snap...)
}
