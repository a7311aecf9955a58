package mdstat

import "strings"

// Externally managed arrays carry a metadata version of the form
//
//	external:[/-]container/subdev
//
// where a leading '/' or '-' on the suffix marks a subarray living
// inside the named container ('-' when read-only).

const externalPrefix = "external:"

// IsExternal reports whether the array is externally managed.
func (e *ArrayStatus) IsExternal() bool {
	return strings.HasPrefix(e.MetadataVersion, externalPrefix)
}

// IsSubarray reports whether the array is an externally-managed
// subarray of some container.
func (e *ArrayStatus) IsSubarray() bool {
	return e.IsExternal() && isSubarraySuffix(e.MetadataVersion[len(externalPrefix):])
}

// IsContainerMember reports whether the array is a subarray of the
// given container device.
func (e *ArrayStatus) IsContainerMember(container string) bool {
	return e.IsExternal() &&
		containerMatches(e.MetadataVersion[len(externalPrefix):], container)
}

func isSubarraySuffix(meta string) bool {
	return meta != "" && (meta[0] == '/' || meta[0] == '-')
}

// containerMatches reports whether the metadata suffix names the given
// container: [/-]container/...
func containerMatches(meta, container string) bool {
	if !isSubarraySuffix(meta) {
		return false
	}
	rest := meta[1:]
	return strings.HasPrefix(rest, container) &&
		len(rest) > len(container) && rest[len(container)] == '/'
}

// subdevMatches reports whether the metadata suffix names the given
// subdevice: .../subdev
func subdevMatches(meta, subdev string) bool {
	sl := strings.LastIndexByte(meta, '/')
	if sl < 0 {
		return false
	}
	return meta[sl+1:] == subdev
}
