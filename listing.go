package stencil

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Line is one decoded instruction of a stencil listing.
type Line struct {
	Offset uint64 `json:"offset"`
	Bytes  []byte `json:"bytes"`
	Text   string `json:"text"`
	// Holes names the holes patched inside this instruction.
	Holes []string `json:"holes,omitempty"`
}

// Listing decodes the stencil code for display, marking the instructions
// that contain patch sites. Bytes that do not decode are listed one at a
// time as data. The pipeline never relies on it.
func Listing(s *Stencil, holes []Hole) []Line {
	var lines []Line

	offset := 0
	for offset < len(s.Code) {
		n := 1
		text := fmt.Sprintf(".byte 0x%02x", s.Code[offset])
		if inst, err := x86asm.Decode(s.Code[offset:], 64); err == nil {
			n = inst.Len
			text = x86asm.IntelSyntax(inst, uint64(offset), nil)
		}

		line := Line{
			Offset: uint64(offset),
			Bytes:  s.Code[offset : offset+n],
			Text:   text,
		}
		for _, r := range s.Relocs {
			if r.Offset >= line.Offset && r.Offset < line.Offset+uint64(n) {
				name := fmt.Sprintf("#%d", r.Hole)
				if r.Hole >= 0 && r.Hole < len(holes) {
					name = holes[r.Hole].Name
				}
				line.Holes = append(line.Holes, name)
			}
		}
		lines = append(lines, line)

		offset += n
	}

	return lines
}
