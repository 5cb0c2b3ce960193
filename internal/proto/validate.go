package proto

// ValidName reports whether name is acceptable as a display name:
// 1 to NameLen-1 bytes, every byte printable ASCII (no control
// characters, tab included), at least one non-space byte, and no
// plain space in the first or last position.
//
// Pure predicate: no side effects, no allocation beyond scanning.
func (l Limits) ValidName(name string) bool {
	n := len(name)
	if n < 1 || n > l.NameLen-1 {
		return false
	}
	if name[0] == ' ' || name[n-1] == ' ' {
		return false
	}
	nonSpace := false
	for i := 0; i < n; i++ {
		b := name[i]
		if b < 0x20 || b > 0x7e {
			return false
		}
		if b != ' ' {
			nonSpace = true
		}
	}
	return nonSpace
}
