package symbols

// Kind represents the type of a symbol as an enum
type Kind string

const (
	KindFile          Kind = "file"
	KindModule        Kind = "module"
	KindNamespace     Kind = "namespace"
	KindPackage       Kind = "package"
	KindClass         Kind = "class"
	KindMethod        Kind = "method"
	KindProperty      Kind = "property"
	KindField         Kind = "field"
	KindConstructor   Kind = "constructor"
	KindEnum          Kind = "enum"
	KindInterface     Kind = "interface"
	KindFunction      Kind = "function"
	KindVariable      Kind = "variable"
	KindConstant      Kind = "constant"
	KindString        Kind = "string"
	KindNumber        Kind = "number"
	KindBoolean       Kind = "boolean"
	KindArray         Kind = "array"
	KindObject        Kind = "object"
	KindKey           Kind = "key"
	KindNull          Kind = "null"
	KindEnumMember    Kind = "enum_member"
	KindStruct        Kind = "struct"
	KindEvent         Kind = "event"
	KindOperator      Kind = "operator"
	KindTypeParameter Kind = "type_parameter"
	KindUnknown       Kind = "unknown"
)

// See: https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#symbolKind
var lspKinds = map[int]Kind{
	1:  KindFile,
	2:  KindModule,
	3:  KindNamespace,
	4:  KindPackage,
	5:  KindClass,
	6:  KindMethod,
	7:  KindProperty,
	8:  KindField,
	9:  KindConstructor,
	10: KindEnum,
	11: KindInterface,
	12: KindFunction,
	13: KindVariable,
	14: KindConstant,
	15: KindString,
	16: KindNumber,
	17: KindBoolean,
	18: KindArray,
	19: KindObject,
	20: KindKey,
	21: KindNull,
	22: KindEnumMember,
	23: KindStruct,
	24: KindEvent,
	25: KindOperator,
	26: KindTypeParameter,
	27: KindUnknown,
}

var kindNumbers = func() map[Kind]int {
	numbers := make(map[Kind]int, len(lspKinds))
	for n, k := range lspKinds {
		numbers[k] = n
	}
	return numbers
}()

// KindFromLSP returns the Kind for a given LSP symbol kind
func KindFromLSP(kind int) Kind {
	symbolKind, ok := lspKinds[kind]
	if !ok {
		return KindUnknown
	}
	return symbolKind
}

// LSP returns the LSP symbol kind number, or 0 for KindUnknown
func (k Kind) LSP() int {
	if k == KindUnknown {
		return 0
	}
	return kindNumbers[k]
}
