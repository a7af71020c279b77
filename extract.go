package stencil

import (
	"fmt"
	"os"
)

// Extract parses an x86-64 ELF relocatable object and returns its stencils
// and holes. Stencil code aliases data, which must not be modified while
// the model is in use.
func Extract(data []byte) (*Model, error) {
	obj, err := loadObject(data)
	if err != nil {
		return nil, err
	}
	defer obj.file.Close()

	stencils, holes, byIndex, err := classifySymbols(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to classify symbols: %w", err)
	}

	if err := mapRelocations(obj, stencils, byIndex); err != nil {
		return nil, fmt.Errorf("failed to map relocations: %w", err)
	}

	m := &Model{Stencils: stencils, Holes: holes}
	m.TrimTrailingJumps()
	m.PopulateHoles()

	return m, nil
}

// ExtractFile reads the object file at name and extracts it.
func ExtractFile(name string) (*Model, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}
	return Extract(data)
}
