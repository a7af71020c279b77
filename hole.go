package stencil

import "strings"

// DataType is the patch width of a hole, spelled as the C type the
// generated code uses for it.
type DataType string

// Recognized hole data types.
const (
	DataTypeUint64  DataType = "uint64_t"
	DataTypeUint32  DataType = "uint32_t"
	DataTypePointer DataType = "void*"
)

// Symbol names reserved by the stencil compiler.
const (
	LargeValueHolePrefix = "cnp_large_value_hole"
	SmallValueHolePrefix = "cnp_small_value_hole"
	NearFuncHolePrefix   = "cnp_near_func_hole"
	FarFuncHolePrefix    = "cnp_far_fun_hole"
	OutputHoleName       = "cnp_stencil_output"
)

// Hole is a named patch point whose value is supplied at code generation
// time.
type Hole struct {
	Name     string   `json:"name" yaml:"name"`
	Index    int      `json:"index" yaml:"index"`
	DataType DataType `json:"datatype" yaml:"datatype"`
	Internal bool     `json:"internal" yaml:"internal"`
}

type holeRule struct {
	match    func(name string) bool
	dataType DataType
}

func hasPrefix(prefix string) func(string) bool {
	return func(name string) bool { return strings.HasPrefix(name, prefix) }
}

func equals(want string) func(string) bool {
	return func(name string) bool { return name == want }
}

// Order matters: the first matching rule wins.
var holeRules = []holeRule{
	{hasPrefix(LargeValueHolePrefix), DataTypeUint64},
	{hasPrefix(SmallValueHolePrefix), DataTypeUint32},
	{hasPrefix(NearFuncHolePrefix), DataTypeUint32},
	{hasPrefix(FarFuncHolePrefix), DataTypePointer},
	{equals(OutputHoleName), DataTypeUint32},
}

// ClassifyHole infers the data type of a hole from its symbol name and
// reports whether the name follows one of the reserved conventions.
// Any other symbol is an external, pointer-sized call or data target.
func ClassifyHole(name string) (DataType, bool) {
	for _, r := range holeRules {
		if r.match(name) {
			return r.dataType, true
		}
	}
	return DataTypePointer, false
}
