package stencil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// relocSection returns the relocation section for .text. The producing
// toolchain emits it directly after .text in the section header table;
// this is a layout convention, not something the format guarantees, so
// any section that does not relocate .text is rejected rather than read.
func (o *object) relocSection() (*elf.Section, error) {
	index := o.textIndex + 1
	if index >= len(o.file.Sections) {
		return nil, fmt.Errorf("%w: no section follows .text (expected its relocations at index %d)", ErrMissingSection, index)
	}

	sec := o.file.Sections[index]
	if sec.Type != elf.SHT_RELA && sec.Type != elf.SHT_REL {
		return nil, fmt.Errorf("%w: section %d (%s) after .text is %s, expected relocations for .text",
			ErrMissingSection, index, sec.Name, sec.Type)
	}
	if int(sec.Info) != o.textIndex {
		return nil, fmt.Errorf("%w: section %d (%s) relocates section %d, not .text (%d)",
			ErrMissingSection, index, sec.Name, sec.Info, o.textIndex)
	}

	return sec, nil
}

// Entry sizes of Elf64_Rela and Elf64_Rel.
const (
	rela64Size = 24
	rel64Size  = 16
)

// relocations decodes the .text relocations. REL entries carry no addend
// and are reported with addend 0.
func (o *object) relocations() ([]elf.Rela64, error) {
	sec, err := o.relocSection()
	if err != nil {
		return nil, err
	}

	raw, err := o.sectionBytes(sec)
	if err != nil {
		return nil, err
	}

	entSize := rela64Size
	if sec.Type == elf.SHT_REL {
		entSize = rel64Size
	}
	if len(raw)%entSize != 0 {
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of %d", ErrFormat, sec.Name, len(raw), entSize)
	}

	r := bytes.NewReader(raw)
	if sec.Type == elf.SHT_RELA {
		relas := make([]elf.Rela64, len(raw)/entSize)
		if err := binary.Read(r, o.file.ByteOrder, relas); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrFormat, sec.Name, err)
		}
		return relas, nil
	}

	rels := make([]elf.Rel64, len(raw)/entSize)
	if err := binary.Read(r, o.file.ByteOrder, rels); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrFormat, sec.Name, err)
	}
	relas := make([]elf.Rela64, len(rels))
	for i, rel := range rels {
		relas[i] = elf.Rela64{Off: rel.Off, Info: rel.Info}
	}
	return relas, nil
}

// mapRelocations attaches every .text relocation to the stencil that
// contains it, rewriting its offset relative to the stencil start.
func mapRelocations(obj *object, stencils []*Stencil, byIndex map[int]int) error {
	relas, err := obj.relocations()
	if err != nil {
		return err
	}

	for i, rela := range relas {
		owner := findStencil(stencils, rela.Off)
		if owner == nil {
			return fmt.Errorf("%w: relocation %d at .text+%#x", ErrUnmappedRelocation, i, rela.Off)
		}

		symIndex := int(elf.R_SYM64(rela.Info))
		hole, ok := byIndex[symIndex]
		if !ok {
			return fmt.Errorf("%w: relocation %d in %s references symbol %d",
				ErrUnresolvedHole, i, owner.Name, symIndex)
		}

		owner.Relocs = append(owner.Relocs, Reloc{
			Offset: rela.Off - owner.Address,
			Addend: rela.Addend,
			Hole:   hole,
			Type:   elf.R_X86_64(elf.R_TYPE64(rela.Info)),
		})
	}

	return nil
}

func findStencil(stencils []*Stencil, off uint64) *Stencil {
	for _, s := range stencils {
		if s.contains(off) {
			return s
		}
	}
	return nil
}
