package stencil_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// testSym is a symbol table entry of a synthetic object. Entry 0 is added
// by the builder.
type testSym struct {
	name    string
	bind    elf.SymBind
	typ     elf.SymType
	value   uint64
	size    uint64
	badName bool   // name offset points past the string table
	shndx   uint16 // section index override
}

type testRela struct {
	off    uint64
	sym    uint32
	typ    elf.R_X86_64
	addend int64
}

// testObject describes a minimal x86-64 relocatable object:
// null, .text, .rela.text, .symtab, .strtab, .shstrtab.
type testObject struct {
	text       []byte
	textOffset uint64 // file offset of .text; 0 places it after the header
	syms       []testSym
	relocs     []testRela

	relType    elf.SectionType // SHT_RELA unless set
	noRelocs   bool            // omit the relocation section
	relocsLast bool            // put the relocation section last
	noText     bool            // name the code section .code instead
	machine    elf.Machine
	fileType   elf.Type
	class      elf.Class
}

func global(name string, typ elf.SymType, value, size uint64) testSym {
	return testSym{name: name, bind: elf.STB_GLOBAL, typ: typ, value: value, size: size}
}

func local(name string, typ elf.SymType) testSym {
	return testSym{name: name, bind: elf.STB_LOCAL, typ: typ}
}

func align(buf *bytes.Buffer, n int) {
	for buf.Len()%n != 0 {
		buf.WriteByte(0)
	}
}

func (o testObject) build(t testing.TB) []byte {
	t.Helper()

	var (
		buf      bytes.Buffer
		le       = binary.LittleEndian
		shstrtab = []byte{0}
		strtab   = []byte{0}
	)

	addName := func(tab *[]byte, name string) uint32 {
		if name == "" {
			return 0
		}
		off := uint32(len(*tab))
		*tab = append(*tab, name...)
		*tab = append(*tab, 0)
		return off
	}

	type section struct {
		name string
		hdr  elf.Section64
		data []byte
	}

	textName := ".text"
	if o.noText {
		textName = ".code"
	}
	sections := []*section{
		{},
		{name: textName, hdr: elf.Section64{Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR), Addralign: 16}, data: o.text},
	}
	const textIndex = 1

	// Symbol table.
	var symtab bytes.Buffer
	firstGlobal := 1
	binary.Write(&symtab, le, elf.Sym64{})
	for i, s := range o.syms {
		nameOff := addName(&strtab, s.name)
		if s.badName {
			nameOff = 1 << 20
		}
		shndx := uint16(elf.SHN_UNDEF)
		if s.typ == elf.STT_FUNC || s.typ == elf.STT_SECTION {
			shndx = textIndex
		}
		if s.shndx != 0 {
			shndx = s.shndx
		}
		if s.bind == elf.STB_LOCAL {
			firstGlobal = i + 2
		}
		binary.Write(&symtab, le, elf.Sym64{
			Name:  nameOff,
			Info:  elf.ST_INFO(s.bind, s.typ),
			Shndx: shndx,
			Value: s.value,
			Size:  s.size,
		})
	}

	// Relocations.
	var rel bytes.Buffer
	relType := o.relType
	if relType == 0 {
		relType = elf.SHT_RELA
	}
	for _, r := range o.relocs {
		info := elf.R_INFO(r.sym, uint32(r.typ))
		if relType == elf.SHT_REL {
			binary.Write(&rel, le, elf.Rel64{Off: r.off, Info: info})
		} else {
			binary.Write(&rel, le, elf.Rela64{Off: r.off, Info: info, Addend: r.addend})
		}
	}
	relName, relEntSize := ".rela"+textName, uint64(binary.Size(elf.Rela64{}))
	if relType == elf.SHT_REL {
		relName, relEntSize = ".rel"+textName, uint64(binary.Size(elf.Rel64{}))
	}
	relSec := &section{
		name: relName,
		hdr:  elf.Section64{Type: uint32(relType), Flags: uint64(elf.SHF_INFO_LINK), Info: textIndex, Addralign: 8, Entsize: relEntSize},
		data: rel.Bytes(),
	}

	if !o.noRelocs && !o.relocsLast {
		sections = append(sections, relSec)
	}
	symIndex := len(sections)
	sections = append(sections,
		&section{name: ".symtab", hdr: elf.Section64{Type: uint32(elf.SHT_SYMTAB), Link: uint32(symIndex + 1), Info: uint32(firstGlobal), Addralign: 8, Entsize: elf.Sym64Size}, data: symtab.Bytes()},
		&section{name: ".strtab", hdr: elf.Section64{Type: uint32(elf.SHT_STRTAB), Addralign: 1}},
		&section{name: ".shstrtab", hdr: elf.Section64{Type: uint32(elf.SHT_STRTAB), Addralign: 1}},
	)
	if !o.noRelocs && o.relocsLast {
		sections = append(sections, relSec)
	}
	for _, s := range sections[1:] {
		s.hdr.Name = addName(&shstrtab, s.name)
		if s.hdr.Type == uint32(elf.SHT_SYMTAB) {
			s.hdr.Link = uint32(symIndex + 1)
		}
	}
	sections[symIndex+1].data = strtab
	sections[symIndex+2].data = shstrtab

	// Layout: header, .text, the other sections, section headers.
	buf.Write(make([]byte, 64))
	textOffset := o.textOffset
	if textOffset == 0 {
		textOffset = 64
	}
	if uint64(buf.Len()) > textOffset {
		t.Fatalf("text offset %#x overlaps the ELF header", textOffset)
	}
	buf.Write(make([]byte, textOffset-uint64(buf.Len())))
	for _, s := range sections[1:] {
		align(&buf, 8)
		s.hdr.Off = uint64(buf.Len())
		s.hdr.Size = uint64(len(s.data))
		buf.Write(s.data)
	}

	align(&buf, 8)
	shoff := uint64(buf.Len())
	for _, s := range sections {
		binary.Write(&buf, le, s.hdr)
	}

	machine, fileType, class := o.machine, o.fileType, o.class
	if machine == 0 {
		machine = elf.EM_X86_64
	}
	if fileType == 0 {
		fileType = elf.ET_REL
	}
	if class == 0 {
		class = elf.ELFCLASS64
	}

	hdr := elf.Header64{
		Type:      uint16(fileType),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(symIndex + 2),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(class)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	out := buf.Bytes()
	var hb bytes.Buffer
	binary.Write(&hb, le, hdr)
	copy(out, hb.Bytes())

	return out
}
