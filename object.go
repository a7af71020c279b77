package stencil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// object is a parsed relocatable object that keeps the raw input around,
// so stencil code can alias it instead of being copied.
type object struct {
	data      []byte
	file      *elf.File
	text      *elf.Section
	textIndex int
	symbols   []elf.Sym64
	strtab    []byte
}

// loadObject parses data as an x86-64 ELF64 relocatable object and
// locates its code section and symbol table.
func loadObject(data []byte) (*object, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse ELF file: %v", ErrFormat, err)
	}

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: unsupported ELF class: %s", ErrFormat, f.Class)
	}
	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("%w: unsupported ELF machine: %s", ErrFormat, f.Machine)
	}
	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("%w: not a relocatable object: %s", ErrFormat, f.Type)
	}

	obj := &object{data: data, file: f, textIndex: -1}
	for i, sec := range f.Sections {
		if sec.Name == ".text" {
			obj.text, obj.textIndex = sec, i
			break
		}
	}
	if obj.text == nil {
		return nil, fmt.Errorf("%w: no .text section found", ErrMissingSection)
	}

	if err := obj.loadSymbols(); err != nil {
		return nil, err
	}

	return obj, nil
}

// loadSymbols decodes the raw symbol table. debug/elf replaces names it
// cannot resolve with "", so the string table is kept for symbolName.
func (o *object) loadSymbols() error {
	var symtab *elf.Section
	for _, sec := range o.file.Sections {
		if sec.Type == elf.SHT_SYMTAB {
			symtab = sec
			break
		}
	}
	if symtab == nil {
		return fmt.Errorf("%w: no symbol table found", ErrMissingSection)
	}
	if int(symtab.Link) >= len(o.file.Sections) {
		return fmt.Errorf("%w: symbol table links to missing section %d", ErrMissingSection, symtab.Link)
	}

	raw, err := o.sectionBytes(symtab)
	if err != nil {
		return err
	}
	if len(raw)%elf.Sym64Size != 0 {
		return fmt.Errorf("%w: symbol table size %d is not a multiple of %d", ErrFormat, len(raw), elf.Sym64Size)
	}

	o.symbols = make([]elf.Sym64, len(raw)/elf.Sym64Size)
	if err := binary.Read(bytes.NewReader(raw), o.file.ByteOrder, o.symbols); err != nil {
		return fmt.Errorf("%w: failed to read symbol table: %v", ErrFormat, err)
	}

	o.strtab, err = o.sectionBytes(o.file.Sections[symtab.Link])
	return err
}

// symbolName resolves a string table offset.
func (o *object) symbolName(off uint32) (string, error) {
	if uint64(off) >= uint64(len(o.strtab)) {
		return "", fmt.Errorf("%w: offset %d past table of %d bytes", ErrMissingSymbolName, off, len(o.strtab))
	}
	n := bytes.IndexByte(o.strtab[off:], 0)
	if n < 0 {
		return "", fmt.Errorf("%w: unterminated name at offset %d", ErrMissingSymbolName, off)
	}
	return string(o.strtab[off : int(off)+n]), nil
}

// sectionBytes returns the contents of sec as a view of the input.
func (o *object) sectionBytes(sec *elf.Section) ([]byte, error) {
	if sec.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	return o.slice(sec.Offset, sec.Size)
}

// slice returns data[start:start+size], failing instead of panicking
// when the range does not fit.
func (o *object) slice(start, size uint64) ([]byte, error) {
	end := start + size
	if end < start || end > uint64(len(o.data)) {
		return nil, fmt.Errorf("%w: range [%#x, %#x) with input of %#x bytes", ErrOutOfRangeCode, start, end, len(o.data))
	}
	return o.data[start:end:end], nil
}
