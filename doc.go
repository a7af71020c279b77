// Package stencil extracts copy-and-patch stencils from x86-64 ELF
// relocatable objects.
//
// A stencil is the machine code of one global function, meant to be
// copied verbatim into a code buffer and then patched. The places that are
// patched are holes: every symbol of the object that is not a global
// function.
//
// # Holes
//
// The compiler that produces the objects encodes what a hole holds in its
// name:
//   - cnp_large_value_hole*: a 64-bit value
//   - cnp_small_value_hole*: a 32-bit value
//   - cnp_near_func_hole*: a function reachable with a 32-bit displacement
//   - cnp_far_fun_hole*: a function pointer
//   - cnp_stencil_output: the continuation, i.e. the next stencil
//
// These are internal holes. Any other symbol is an external hole, a
// pointer-sized call or data target resolved by the code generator.
//
// # Extraction
//
// Use [Extract] on the raw bytes of an object, or [ExtractFile]. Every
// relocation of .text is attached to the stencil containing it, with its
// offset rewritten relative to the stencil start. Stencils ending with a
// placeholder jump to cnp_stencil_output have that jump removed, since the
// next stencil can be laid out right after them. Each stencil finally
// lists the distinct holes it references, in first-reference order.
//
// Extraction stops at the first problem; the returned errors wrap one of
// the Err* sentinels.
package stencil
