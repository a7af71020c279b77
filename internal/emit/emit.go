// Package emit renders an extracted stencil model as C source.
package emit

import (
	"bytes"
	"debug/elf"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/maxgio92/stencil"
)

// ErrUnsupportedRelocation reports a relocation the generated patch code
// cannot apply.
var ErrUnsupportedRelocation = errors.New("unsupported relocation")

// DefaultPrefix prefixes every generated C identifier.
const DefaultPrefix = "cnp_"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").
	Funcs(template.FuncMap{"hex": hexBytes}).
	ParseFS(templateFS, "templates/*.tmpl"))

// Options configures the generated C code.
type Options struct {
	// Prefix is prepended to generated identifiers. Defaults to DefaultPrefix.
	Prefix string
	// HeaderPath is the path of the generated header. The source includes
	// it by its base name.
	HeaderPath string
}

func (o Options) prefix() string {
	if o.Prefix == "" {
		return DefaultPrefix
	}
	return o.Prefix
}

type param struct {
	Type string
	Name string
}

type stencilView struct {
	Symbol    string
	ArraySize int
	Code      []byte
	Params    []param
	Patches   []string
}

type fileView struct {
	Guard    string
	Header   string
	Prefix   string
	Holes    []stencil.Hole
	Stencils []stencilView
}

// Header renders the C header declaring the stencils of m.
func Header(m *stencil.Model, opts Options) ([]byte, error) {
	return render("header.h.tmpl", m, opts)
}

// Source renders the C source defining the stencil code and patch
// functions of m.
func Source(m *stencil.Model, opts Options) ([]byte, error) {
	return render("source.c.tmpl", m, opts)
}

func render(name string, m *stencil.Model, opts Options) ([]byte, error) {
	view, err := newFileView(m, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func newFileView(m *stencil.Model, opts Options) (*fileView, error) {
	header := filepath.Base(opts.HeaderPath)
	if opts.HeaderPath == "" {
		header = "stencils.h"
	}

	view := &fileView{
		Guard:  guard(header),
		Header: header,
		Prefix: opts.prefix(),
		Holes:  m.Holes,
	}

	for _, s := range m.Stencils {
		sv := stencilView{
			Symbol:    opts.prefix() + s.Name,
			ArraySize: max(len(s.Code), 1),
			Code:      s.Code,
		}

		names := make(map[int]string, len(s.Holes))
		for _, ref := range s.Holes {
			h := m.Hole(ref)
			if h == nil {
				return nil, fmt.Errorf("stencil %s: %w: hole %d", s.Name, stencil.ErrUnresolvedHole, ref)
			}
			names[ref] = paramName(h)
			sv.Params = append(sv.Params, param{Type: string(h.DataType), Name: names[ref]})
		}

		for _, r := range s.Relocs {
			name, ok := names[r.Hole]
			if !ok {
				return nil, fmt.Errorf("stencil %s: %w: hole %d", s.Name, stencil.ErrUnresolvedHole, r.Hole)
			}
			stmt, err := patchStatement(opts.prefix(), r, name)
			if err != nil {
				return nil, fmt.Errorf("stencil %s: %w", s.Name, err)
			}
			sv.Patches = append(sv.Patches, stmt)
		}

		view.Stencils = append(view.Stencils, sv)
	}

	return view, nil
}

// patchStatement returns the C statement applying r to the copy at dst.
func patchStatement(prefix string, r stencil.Reloc, hole string) (string, error) {
	site := fmt.Sprintf("dst + %d", r.Offset)
	value := fmt.Sprintf("(uint64_t)(uintptr_t)%s + (int64_t)%d", hole, r.Addend)

	switch r.Type {
	case elf.R_X86_64_64:
		return fmt.Sprintf("%swrite64(%s, %s);", prefix, site, value), nil
	case elf.R_X86_64_32, elf.R_X86_64_32S:
		return fmt.Sprintf("%swrite32(%s, (uint32_t)(%s));", prefix, site, value), nil
	case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
		return fmt.Sprintf("%swrite32(%s, (uint32_t)(%s - (uint64_t)(uintptr_t)(%s)));", prefix, site, value, site), nil
	default:
		return "", fmt.Errorf("%w: %s at offset %#x", ErrUnsupportedRelocation, r.Type, r.Offset)
	}
}

// paramName returns the C parameter name of a hole. Holes without a
// usable name (section symbols, for instance) are named by index.
func paramName(h *stencil.Hole) string {
	if !isIdent(h.Name) || h.Name == "dst" {
		return fmt.Sprintf("hole_%d", h.Index)
	}
	return h.Name
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func guard(header string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(header) {
		if c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func hexBytes(code []byte) string {
	parts := make([]string, len(code))
	for i, b := range code {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, ", ")
}
