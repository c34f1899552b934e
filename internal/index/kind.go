package index

// Kind classifies a symbol occurrence.
type Kind string

const (
	KindFunction    Kind = "function"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindDestructor  Kind = "destructor"
	KindClass       Kind = "class"
	KindStruct      Kind = "struct"
	KindInterface   Kind = "interface"
	KindNamespace   Kind = "namespace"
	KindEnum        Kind = "enum"
	KindVariable    Kind = "variable"
	KindField       Kind = "field"
	KindParameter   Kind = "parameter"
	KindTypedef     Kind = "typedef"
	KindMacro       Kind = "macro"
	KindCall        Kind = "call"
	KindReference   Kind = "reference"
)

// containerKinds are the kinds whose definitions can enclose other
// symbols, used by the containing-function search.
var containerKinds = map[Kind]bool{
	KindFunction:    true,
	KindMethod:      true,
	KindConstructor: true,
	KindDestructor:  true,
	KindClass:       true,
	KindStruct:      true,
	KindInterface:   true,
	KindNamespace:   true,
}

// Container reports whether a definition of this kind can enclose other
// symbols.
func (k Kind) Container() bool {
	return containerKinds[k]
}

var kindSpellings = map[Kind]string{
	KindFunction:    "Function",
	KindMethod:      "Method",
	KindConstructor: "Constructor",
	KindDestructor:  "Destructor",
	KindClass:       "Class",
	KindStruct:      "Struct",
	KindInterface:   "Interface",
	KindNamespace:   "Namespace",
	KindEnum:        "Enum",
	KindVariable:    "Variable",
	KindField:       "Field",
	KindParameter:   "Parameter",
	KindTypedef:     "Typedef",
	KindMacro:       "Macro",
	KindCall:        "Call",
	KindReference:   "Reference",
}

// Spelling returns the human-readable name of the kind. Unknown kinds
// spell as their raw value.
func (k Kind) Spelling() string {
	if s, ok := kindSpellings[k]; ok {
		return s
	}
	return string(k)
}
