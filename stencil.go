package stencil

import (
	"debug/elf"
	"strings"
)

// Reloc is a single patch site inside a stencil.
type Reloc struct {
	// Offset is relative to the start of the owning stencil.
	Offset uint64 `json:"offset" yaml:"offset"`
	Addend int64  `json:"addend" yaml:"addend"`
	// Hole is the position of the patched hole in Model.Holes.
	Hole int          `json:"hole" yaml:"hole"`
	Type elf.R_X86_64 `json:"relocation" yaml:"relocation"`
}

// Kind returns the relocation type without its R_X86_64_ prefix, e.g. "PC32".
func (r Reloc) Kind() string {
	return strings.TrimPrefix(r.Type.String(), "R_X86_64_")
}

// Stencil is the machine code of one compiled function together with the
// patch sites inside it.
type Stencil struct {
	Name    string `json:"name" yaml:"name"`
	Address uint64 `json:"address" yaml:"address"`
	// Size is the symbol size. It is kept when a trailing jump is elided,
	// so the emitted length is len(Code).
	Size uint64 `json:"size" yaml:"size"`
	// Code aliases the buffer passed to Extract.
	Code   []byte  `json:"code" yaml:"code"`
	Relocs []Reloc `json:"relocs" yaml:"relocs"`
	// Holes lists the distinct positions in Model.Holes referenced by
	// Relocs, in first-reference order.
	Holes []int `json:"holes" yaml:"holes"`
}

// contains reports whether the section offset off lies in the stencil.
func (s *Stencil) contains(off uint64) bool {
	return off >= s.Address && off-s.Address < s.Size
}

// Model is the result of an extraction: the stencils in symbol table
// order and the registry of holes they reference.
type Model struct {
	Stencils []*Stencil `json:"stencils" yaml:"stencils"`
	Holes    []Hole     `json:"holes" yaml:"holes"`
}

// Hole returns the hole at position ref of the registry.
func (m *Model) Hole(ref int) *Hole {
	if ref < 0 || ref >= len(m.Holes) {
		return nil
	}
	return &m.Holes[ref]
}

// Lookup returns the stencil with the given name, or nil.
func (m *Model) Lookup(name string) *Stencil {
	for _, s := range m.Stencils {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// TrimTrailingJumps applies TrimTrailingJump to every stencil and returns
// the number of stencils that were shortened.
func (m *Model) TrimTrailingJumps() int {
	n := 0
	for _, s := range m.Stencils {
		if TrimTrailingJump(s, m.Holes) {
			n++
		}
	}
	return n
}

// PopulateHoles applies PopulateHoles to every stencil.
func (m *Model) PopulateHoles() {
	for _, s := range m.Stencils {
		PopulateHoles(s)
	}
}
