package mdstat

import "golang.org/x/sys/unix"

// WaitResult is the outcome of a bounded wait.
type WaitResult int

const (
	WaitError WaitResult = iota
	WaitTimeout
	WaitEvent
)

// Wait blocks until the held status descriptor reports an exceptional
// condition (how the kernel signals that the file changed) or the
// timeout expires. It requires a held descriptor; without one it
// returns WaitError immediately. There is no internal retry.
func (s *Session) Wait(seconds int) WaitResult {
	if s.fd < 0 {
		return WaitError
	}

	var fds unix.FdSet
	fds.Set(s.fd)
	tv := unix.Timeval{Sec: int64(seconds)}

	n, err := unix.Select(s.fd+1, nil, nil, &fds, &tv)
	switch {
	case err != nil:
		return WaitError
	case n == 0:
		return WaitTimeout
	}
	return WaitEvent
}

// WaitFD blocks until the held status descriptor reports an exceptional
// condition, the auxiliary descriptor fd becomes ready, or a signal
// unblocked by sigmask is handled. There is no timeout. A regular-file
// auxiliary descriptor (a proc or sys file) is watched for exceptional
// readiness like the status descriptor; anything else for ordinary
// read readiness. If fd cannot be inspected the call returns without
// blocking. Pass a negative fd to wait on the status descriptor alone.
func (s *Session) WaitFD(fd int, sigmask *unix.Sigset_t) {
	var rfds, xfds unix.FdSet
	maxfd := 0

	if s.fd >= 0 {
		xfds.Set(s.fd)
	}
	if fd >= 0 {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return
		}
		if st.Mode&unix.S_IFMT == unix.S_IFREG {
			xfds.Set(fd)
		} else {
			rfds.Set(fd)
		}
		if fd > maxfd {
			maxfd = fd
		}
	}
	if s.fd > maxfd {
		maxfd = s.fd
	}

	unix.Pselect(maxfd+1, &rfds, nil, &xfds, nil, sigmask)
}
