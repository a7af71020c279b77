package stencil

import "errors"

// Errors reported by Extract. Every error aborts the extraction; callers
// match them with errors.Is.
var (
	// ErrFormat reports input that is not an ELF64 x86-64 relocatable object.
	ErrFormat = errors.New("invalid object format")
	// ErrMissingSection reports a missing code, symbol or relocation section.
	ErrMissingSection = errors.New("missing section")
	// ErrMissingSymbolName reports a symbol whose name is not in the string table.
	ErrMissingSymbolName = errors.New("symbol name not in string table")
	// ErrUnmappedRelocation reports a relocation outside every stencil.
	ErrUnmappedRelocation = errors.New("relocation outside of any stencil")
	// ErrUnresolvedHole reports a relocation whose symbol was never
	// registered as a hole. It signals a broken pipeline invariant rather
	// than bad input.
	ErrUnresolvedHole = errors.New("internal error: unresolved hole reference")
	// ErrOutOfRangeCode reports a byte range past the end of the input.
	ErrOutOfRangeCode = errors.New("code range exceeds input")
	// ErrDuplicateStencil reports two global functions with the same name.
	ErrDuplicateStencil = errors.New("duplicate stencil name")
)
