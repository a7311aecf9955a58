package mdstat

// Busy reports whether an array with the given device name currently
// exists. It takes its own non-held snapshot.
func (s *Session) Busy(devnm string) bool {
	return s.Snapshot(false, false).Find(devnm) != nil
}

// FindByMember returns the first array or external container in the
// snapshot whose member list contains the given device name, or nil.
// External subarrays are skipped: their member lists mirror the
// container's and they never own the device.
func FindByMember(snap Snapshot, member string) *ArrayStatus {
	for _, e := range snap {
		if e.IsSubarray() {
			continue
		}
		if e.HasMember(member) {
			return e
		}
	}
	return nil
}

// ByComponent takes a snapshot and returns the first array containing
// the named member device, detached from the snapshot so the caller
// owns it exclusively. Returns nil if no array contains the device.
func (s *Session) ByComponent(name string) *ArrayStatus {
	snap := s.Snapshot(false, false)
	ent := FindByMember(snap, name)
	if ent != nil {
		snap.Detach(ent)
	}
	return ent
}

// BySubdev takes a snapshot and returns the externally-managed array
// whose metadata version names both the given container and subdevice,
// detached for the caller. Returns nil if there is no match.
func (s *Session) BySubdev(subdev, container string) *ArrayStatus {
	snap := s.Snapshot(false, false)
	for _, e := range snap {
		if !e.IsExternal() {
			continue
		}
		meta := e.MetadataVersion[len(externalPrefix):]
		if !containerMatches(meta, container) || !subdevMatches(meta, subdev) {
			continue
		}
		snap.Detach(e)
		return e
	}
	return nil
}
