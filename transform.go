package stencil

import "bytes"

// trailingJump is jmp rel32 with a zero displacement, the placeholder the
// compiler emits for a jump to the next stencil.
var trailingJump = []byte{0xe9, 0x00, 0x00, 0x00, 0x00}

// TrimTrailingJump removes a stencil's final jump to the stencil output
// when the next stencil can be placed right after it and reached by falling
// through. The jump is removed only if the last relocation patches the
// final four bytes, references OutputHoleName and the code ends with the
// placeholder jump. It reports whether the stencil changed.
//
// Size keeps the symbol size, so a trimmed stencil never matches again.
func TrimTrailingJump(s *Stencil, holes []Hole) bool {
	if len(s.Relocs) == 0 || s.Size < uint64(len(trailingJump)) || uint64(len(s.Code)) != s.Size {
		return false
	}

	last := s.Relocs[len(s.Relocs)-1]
	if last.Offset != s.Size-4 {
		return false
	}
	if last.Hole < 0 || last.Hole >= len(holes) || holes[last.Hole].Name != OutputHoleName {
		return false
	}

	end := len(s.Code) - len(trailingJump)
	if !bytes.Equal(s.Code[end:], trailingJump) {
		return false
	}

	s.Code = s.Code[:end:end]
	s.Relocs = s.Relocs[:len(s.Relocs)-1]
	return true
}

// PopulateHoles rebuilds the stencil's hole list from its relocations:
// each referenced hole once, in order of first reference.
func PopulateHoles(s *Stencil) {
	s.Holes = s.Holes[:0]
	for _, r := range s.Relocs {
		if !containsHole(s.Holes, r.Hole) {
			s.Holes = append(s.Holes, r.Hole)
		}
	}
}

func containsHole(refs []int, ref int) bool {
	for _, h := range refs {
		if h == ref {
			return true
		}
	}
	return false
}
