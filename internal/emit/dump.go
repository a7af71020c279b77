package emit

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/maxgio92/stencil"
)

// Dump writes a summary of m to w: each stencil's code in hex followed by
// one line per relocation.
func Dump(w io.Writer, m *stencil.Model) error {
	for _, s := range m.Stencils {
		if _, err := fmt.Fprintf(w, "%s: %s\n", s.Name, hex.EncodeToString(s.Code)); err != nil {
			return err
		}
		for _, r := range s.Relocs {
			name := "?"
			if h := m.Hole(r.Hole); h != nil {
				name = h.Name
			}
			if _, err := fmt.Fprintf(w, " %d: %s %s\n", r.Offset, name, r.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

// DumpListing writes the instruction listing of every stencil to w.
func DumpListing(w io.Writer, m *stencil.Model) error {
	for _, s := range m.Stencils {
		if _, err := fmt.Fprintf(w, "%s:\n", s.Name); err != nil {
			return err
		}
		for _, l := range stencil.Listing(s, m.Holes) {
			line := fmt.Sprintf("  %4x:  %-24s %s", l.Offset, hex.EncodeToString(l.Bytes), l.Text)
			for _, h := range l.Holes {
				line += " ; " + h
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
