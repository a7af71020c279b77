package stencil

import (
	"debug/elf"
	"fmt"
)

// classifySymbols walks the symbol table in order. Global functions become
// stencils and every other symbol becomes a hole. The returned map takes a
// symbol table index to the position of its hole in holes.
func classifySymbols(obj *object) ([]*Stencil, []Hole, map[int]int, error) {
	var (
		stencils []*Stencil
		holes    []Hole
		byIndex  = make(map[int]int)
		seen     = make(map[string]bool)
	)

	for index := range obj.symbols {
		sym := &obj.symbols[index]

		name, err := obj.symbolName(sym.Name)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("symbol %d: %w", index, err)
		}

		if elf.ST_BIND(sym.Info) != elf.STB_GLOBAL || elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			dataType, internal := ClassifyHole(name)
			byIndex[index] = len(holes)
			holes = append(holes, Hole{
				Name:     name,
				Index:    index,
				DataType: dataType,
				Internal: internal,
			})
			continue
		}

		if int(sym.Shndx) != obj.textIndex {
			return nil, nil, nil, fmt.Errorf("%w: stencil %s is defined in section %d, not .text (%d)",
				ErrFormat, name, sym.Shndx, obj.textIndex)
		}

		if seen[name] {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrDuplicateStencil, name)
		}
		seen[name] = true

		start := obj.text.Offset + sym.Value
		if start < sym.Value {
			return nil, nil, nil, fmt.Errorf("stencil %s: %w: value %#x overflows", name, ErrOutOfRangeCode, sym.Value)
		}
		code, err := obj.slice(start, sym.Size)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("stencil %s: %w", name, err)
		}

		stencils = append(stencils, &Stencil{
			Name:    name,
			Address: sym.Value,
			Size:    sym.Size,
			Code:    code,
		})
	}

	return stencils, holes, byIndex, nil
}
