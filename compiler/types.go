package compiler

import "fmt"

// TypeID is a handle into a TypeTable.
type TypeID uint32

type TypeKind uint8

const (
	KindPrimitive TypeKind = iota
	KindUnknown
	KindStruct
	KindArray   // reserved
	KindPointer // reserved
)

type Prim uint8

const (
	PrimVoid Prim = iota
	PrimI32
	PrimI64
	PrimF32
	PrimF64
	PrimV128
	PrimString
	PrimBool
)

var primNames = [...]string{
	PrimVoid:   "void",
	PrimI32:    "i32",
	PrimI64:    "i64",
	PrimF32:    "f32",
	PrimF64:    "f64",
	PrimV128:   "v128",
	PrimString: "string",
	PrimBool:   "bool",
}

// Subspec narrows what an unknown type may become.
type Subspec uint8

const (
	SubspecNone Subspec = iota
	SubspecNumber
)

// Type describes a type. It is comparable, and two equal descriptions always
// intern to the same TypeID.
type Type struct {
	Kind    TypeKind
	Prim    Prim    // KindPrimitive
	Subspec Subspec // KindUnknown
	Var     uint32  // KindUnknown: makes every fresh unknown distinct
	Name    string  // KindStruct
	Elem    TypeID  // KindArray, KindPointer
}

// Handles of the primitive types. NewTypeTable interns the primitives in
// Prim order so these are valid in every table.
const (
	Void TypeID = iota
	I32
	I64
	F32
	F64
	V128
	String
	Bool
)

// Specificity ranks used by Unify.
const (
	rankUnknown  = 0
	rankNumber   = 1
	rankConcrete = 2
)

// TypeTable interns type descriptions and tracks what each unknown type has
// been unified with. Unknowns are union-find nodes: parent[id] == id for a
// representative.
type TypeTable struct {
	types    []Type
	index    map[Type]TypeID
	parent   []TypeID
	unknowns uint32
}

func NewTypeTable() *TypeTable {
	t := &TypeTable{index: make(map[Type]TypeID)}
	for p := PrimVoid; p <= PrimBool; p++ {
		t.Intern(Type{Kind: KindPrimitive, Prim: p})
	}
	return t
}

// Intern returns the handle of d, adding it to the table if it is new.
func (t *TypeTable) Intern(d Type) TypeID {
	if id, ok := t.index[d]; ok {
		return id
	}
	id := TypeID(len(t.types))
	t.types = append(t.types, d)
	t.parent = append(t.parent, id)
	t.index[d] = id
	return id
}

// Len returns the number of interned types.
func (t *TypeTable) Len() int {
	return len(t.types)
}

// Lookup returns the description stored under id.
func (t *TypeTable) Lookup(id TypeID) Type {
	return t.types[id]
}

// NewUnknown allocates a fresh type variable.
func (t *TypeTable) NewUnknown(sub Subspec) TypeID {
	t.unknowns++
	return t.Intern(Type{Kind: KindUnknown, Subspec: sub, Var: t.unknowns})
}

// FromName maps a surface type name to a primitive type.
func (t *TypeTable) FromName(name string) (TypeID, error) {
	for p, n := range primNames {
		if n == name {
			return TypeID(p), nil
		}
	}
	return 0, errorf(UnknownTypeName, 0, "unknown type %q", name)
}

// StructType returns the handle of the struct type with the given name.
func (t *TypeTable) StructType(name string) TypeID {
	return t.Intern(Type{Kind: KindStruct, Name: name})
}

// Resolve returns the representative of id's equivalence class, compressing
// the path behind it.
func (t *TypeTable) Resolve(id TypeID) TypeID {
	root := id
	for t.parent[root] != root {
		root = t.parent[root]
	}
	for id != root {
		next := t.parent[id]
		t.parent[id] = root
		id = next
	}
	return root
}

func (t *TypeTable) Rank(id TypeID) int {
	d := t.types[t.Resolve(id)]
	if d.Kind != KindUnknown {
		return rankConcrete
	}
	if d.Subspec == SubspecNumber {
		return rankNumber
	}
	return rankUnknown
}

func (t *TypeTable) IsConcrete(id TypeID) bool {
	return t.Rank(id) == rankConcrete
}

// IsNumeric reports whether id is a numeric primitive or an unknown that can
// only become one.
func (t *TypeTable) IsNumeric(id TypeID) bool {
	d := t.types[t.Resolve(id)]
	switch d.Kind {
	case KindUnknown:
		return d.Subspec == SubspecNumber
	case KindPrimitive:
		return isNumericPrim(d.Prim)
	}
	return false
}

// IsInteger is like IsNumeric but excludes the float types.
func (t *TypeTable) IsInteger(id TypeID) bool {
	d := t.types[t.Resolve(id)]
	switch d.Kind {
	case KindUnknown:
		return d.Subspec == SubspecNumber
	case KindPrimitive:
		return d.Prim == PrimI32 || d.Prim == PrimI64
	}
	return false
}

func isNumericPrim(p Prim) bool {
	return p == PrimI32 || p == PrimI64 || p == PrimF32 || p == PrimF64
}

// Same reports whether a and b currently denote the same type.
func (t *TypeTable) Same(a, b TypeID) bool {
	return t.Resolve(a) == t.Resolve(b)
}

// Unify merges a and b and returns the surviving handle: the one of higher
// rank, or a on a tie. Only unknowns are ever bound. A "number" unknown is
// never bound to a non-numeric type; in that case, and when both sides are
// distinct concrete types, nothing changes and the caller sees the two
// handles still differ.
func (t *TypeTable) Unify(a, b TypeID) TypeID {
	ra, rb := t.Resolve(a), t.Resolve(b)
	if ra == rb {
		return ra
	}
	rankA, rankB := t.Rank(ra), t.Rank(rb)
	winner, loser := ra, rb
	if rankB > rankA {
		winner, loser = rb, ra
	}
	if t.Rank(loser) == rankConcrete {
		return winner
	}
	if t.types[loser].Subspec == SubspecNumber && !t.IsNumeric(winner) {
		return winner
	}
	t.parent[loser] = winner
	return winner
}

// Name renders a type for diagnostics and tree dumps.
func (t *TypeTable) Name(id TypeID) string {
	d := t.types[t.Resolve(id)]
	switch d.Kind {
	case KindPrimitive:
		return primNames[d.Prim]
	case KindUnknown:
		if d.Subspec == SubspecNumber {
			return "number"
		}
		return "unknown"
	case KindStruct:
		return d.Name
	case KindArray:
		return "array-" + t.Name(d.Elem)
	case KindPointer:
		return "pointer-" + t.Name(d.Elem)
	default:
		return fmt.Sprintf("type%d", id)
	}
}
