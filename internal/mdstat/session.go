package mdstat

import (
	"os"

	"golang.org/x/sys/unix"
)

// ProcPath is the default status file location.
const ProcPath = "/proc/mdstat"

// Session reads snapshots from the status file and can keep one
// descriptor to it open across reads, both to avoid descriptor churn
// and because change notification (Wait, WaitFD) needs a held
// descriptor to watch. A Session is not safe for concurrent use.
type Session struct {
	path string
	fd   int // cached descriptor, -1 when none
}

// NewSession returns a session reading from path, or the standard proc
// location if path is empty. No descriptor is opened until the first
// held read.
func NewSession(path string) *Session {
	if path == "" {
		path = ProcPath
	}
	return &Session{path: path, fd: -1}
}

// Path returns the status file location this session reads.
func (s *Session) Path() string { return s.path }

// Held reports whether the session currently holds a cached descriptor.
func (s *Session) Held() bool { return s.fd >= 0 }

// Snapshot performs one full read of the status file and returns the
// ordered snapshot, or nil if the source could not be opened or a
// descriptor operation failed. A partial snapshot is never returned.
//
// With hold set the cached descriptor is reused (rewound and duplicated
// for the read); if none is held yet, a duplicate is retained after a
// successful read. With start set the snapshot is ordered for
// sequential array start-up, components before composites.
func (s *Session) Snapshot(hold, start bool) Snapshot {
	var f *os.File
	if hold && s.fd >= 0 {
		if _, err := unix.Seek(s.fd, 0, 0); err != nil {
			return nil
		}
		fd, err := unix.Dup(s.fd)
		if err != nil {
			return nil
		}
		f = os.NewFile(uintptr(fd), s.path)
	} else {
		var err error
		f, err = os.Open(s.path)
		if err != nil {
			return nil
		}
	}

	if _, err := unix.FcntlInt(f.Fd(), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		f.Close()
		return nil
	}

	snap := parse(f, start)

	if hold && s.fd < 0 {
		fd, err := unix.Dup(int(f.Fd()))
		if err != nil {
			f.Close()
			return nil
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			unix.Close(fd)
			f.Close()
			return nil
		}
		s.fd = fd
	}
	f.Close()

	return snap
}

// Close releases the cached descriptor, if any. The session stays
// usable; the next held read opens the source fresh.
func (s *Session) Close() {
	if s.fd >= 0 {
		unix.Close(s.fd)
	}
	s.fd = -1
}
