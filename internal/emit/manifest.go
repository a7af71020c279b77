package emit

import (
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/maxgio92/stencil"
)

type manifestReloc struct {
	Offset uint64 `yaml:"offset"`
	Addend int64  `yaml:"addend"`
	Hole   string `yaml:"hole"`
	Kind   string `yaml:"kind"`
}

type manifestStencil struct {
	Name    string          `yaml:"name"`
	Address uint64          `yaml:"address"`
	Size    uint64          `yaml:"size"`
	Code    string          `yaml:"code"`
	Relocs  []manifestReloc `yaml:"relocs,omitempty"`
	Holes   []string        `yaml:"holes,omitempty"`
}

type manifest struct {
	Holes    []stencil.Hole    `yaml:"holes"`
	Stencils []manifestStencil `yaml:"stencils"`
}

// Manifest describes m as YAML, with holes referenced by name and code
// as a hex string.
func Manifest(m *stencil.Model) ([]byte, error) {
	doc := manifest{Holes: m.Holes}

	for _, s := range m.Stencils {
		ms := manifestStencil{
			Name:    s.Name,
			Address: s.Address,
			Size:    s.Size,
			Code:    hex.EncodeToString(s.Code),
		}
		for _, r := range s.Relocs {
			h := m.Hole(r.Hole)
			if h == nil {
				return nil, fmt.Errorf("stencil %s: %w: hole %d", s.Name, stencil.ErrUnresolvedHole, r.Hole)
			}
			ms.Relocs = append(ms.Relocs, manifestReloc{
				Offset: r.Offset,
				Addend: r.Addend,
				Hole:   h.Name,
				Kind:   r.Kind(),
			})
		}
		for _, ref := range s.Holes {
			if h := m.Hole(ref); h != nil {
				ms.Holes = append(ms.Holes, h.Name)
			}
		}
		doc.Stencils = append(doc.Stencils, ms)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return out, nil
}
