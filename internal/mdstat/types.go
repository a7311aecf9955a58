package mdstat

// ActiveState is the activation state reported for an array.
type ActiveState int

const (
	// StateUnknown means the line carried neither "active" nor "inactive".
	StateUnknown ActiveState = iota
	StateInactive
	StateActive
)

// String returns the state as it appears in the status file.
func (s ActiveState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	}
	return "unknown"
}

// SyncProgress classifies the background sync field of an array line.
type SyncProgress int

const (
	// SyncNone means no sync operation was reported.
	SyncNone SyncProgress = iota
	// SyncInProgress means a percentage was reported; see ArrayStatus.SyncPercent.
	SyncInProgress
	SyncDelayed
	SyncPending
	SyncRemote
)

// String returns a display form of the progress state.
func (p SyncProgress) String() string {
	switch p {
	case SyncInProgress:
		return "in-progress"
	case SyncDelayed:
		return "DELAYED"
	case SyncPending:
		return "PENDING"
	case SyncRemote:
		return "REMOTE"
	}
	return "none"
}

// SyncOp is the kind of background operation an array is running.
// It is only meaningful when SyncProgress != SyncNone.
type SyncOp int

const (
	OpRecovery SyncOp = iota
	OpResync
	OpReshape
	OpCheck
)

// String returns the operation name as printed by the kernel.
func (o SyncOp) String() string {
	switch o {
	case OpResync:
		return "resync"
	case OpReshape:
		return "reshape"
	case OpCheck:
		return "check"
	}
	return "recovery"
}

// ArrayStatus is one array entry parsed from the status file.
// Entries are immutable once a snapshot has been built.
type ArrayStatus struct {
	// Devnm is the kernel device name (md0, md_d1, ...).
	Devnm string

	// Level is the RAID personality (linear, raid1, ...). Empty for
	// inactive arrays, which never report one.
	Level string

	State ActiveState

	// RaidDisks is the configured disk count from the [n/m] token,
	// 0 if the line did not carry one.
	RaidDisks int

	// Blocks is the array size in 1K blocks, 0 if not reported.
	Blocks int64

	// Pattern is the per-slot status string from the [U_U] token,
	// brackets stripped. One 'U' or '_' per slot.
	Pattern string

	Sync SyncProgress

	// SyncPercent holds the integer percentage when Sync == SyncInProgress.
	SyncPercent int

	SyncKind SyncOp

	// MetadataVersion is the value following a "super" token. An
	// "external:" prefix marks the array as externally managed.
	MetadataVersion string

	// Members lists member device names in order of appearance, with the
	// [index] suffix and any (F)/(S) annotation stripped.
	Members []string

	// Failed and Spares count members annotated (F) and (S).
	Failed int
	Spares int
}

// Degraded returns the number of missing or failed slots, derived from
// the '_' characters in Pattern.
func (e *ArrayStatus) Degraded() int {
	n := 0
	for i := 0; i < len(e.Pattern); i++ {
		if e.Pattern[i] == '_' {
			n++
		}
	}
	return n
}

// HasMember reports whether name appears in the member list.
func (e *ArrayStatus) HasMember(name string) bool {
	for _, m := range e.Members {
		if m == name {
			return true
		}
	}
	return false
}

// Snapshot is the ordered list of array entries produced by one read of
// the status file. The caller owns it exclusively.
type Snapshot []*ArrayStatus

// Find returns the entry with the given device name, or nil.
func (s Snapshot) Find(devnm string) *ArrayStatus {
	for _, e := range s {
		if e.Devnm == devnm {
			return e
		}
	}
	return nil
}

// Detach removes exactly the given entry from the snapshot, preserving
// the relative order of the rest. The entry must have been obtained from
// this snapshot; detaching anything else is a programming error and
// panics.
func (s *Snapshot) Detach(ent *ArrayStatus) {
	for i, e := range *s {
		if e == ent {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return
		}
	}
	panic("mdstat: Detach called with entry not in snapshot")
}
