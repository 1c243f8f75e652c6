package compiler

type SymbolKind uint8

const (
	SymbolValue SymbolKind = iota
	SymbolFunction
)

// Signature is the type of a function.
type Signature struct {
	Params []TypeID
	Result TypeID
}

// Symbol is a named value visible in an Env.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Type    TypeID // for functions, the result type
	Mutable bool
	Slot    int // local slot, or -1 for functions and host values
	Sig     *Signature
	Host    bool // declared in an extern block
}

// Arity is the number of parameters of a function symbol.
func (s *Symbol) Arity() int {
	if s.Sig == nil {
		return 0
	}
	return len(s.Sig.Params)
}

type Field struct {
	Name string
	Type TypeID
}

// StructDecl is a declared aggregate type.
type StructDecl struct {
	Name   string
	Type   TypeID
	Fields []Field
}

func (d *StructDecl) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Env is one lexical scope. Values and struct types live in separate
// namespaces; both are searched outward through the parent chain.
type Env struct {
	parent  *Env
	values  map[string]*Symbol
	structs map[string]*StructDecl
}

func NewEnv(parent *Env) *Env {
	return &Env{
		parent:  parent,
		values:  make(map[string]*Symbol),
		structs: make(map[string]*StructDecl),
	}
}

func (e *Env) Parent() *Env {
	return e.parent
}

// DeclareValue adds a variable to this scope. Shadowing a name from an
// enclosing scope is allowed; redeclaring one in the same scope is not.
func (e *Env) DeclareValue(name string, t TypeID, mutable bool, slot int) (*Symbol, error) {
	if _, ok := e.values[name]; ok {
		return nil, errorf(DuplicateDeclaration, 0, "%s is already declared in this scope", name)
	}
	sym := &Symbol{Name: name, Kind: SymbolValue, Type: t, Mutable: mutable, Slot: slot}
	e.values[name] = sym
	return sym, nil
}

func (e *Env) DeclareFunction(name string, sig *Signature) (*Symbol, error) {
	if _, ok := e.values[name]; ok {
		return nil, errorf(DuplicateDeclaration, 0, "%s is already declared in this scope", name)
	}
	sym := &Symbol{Name: name, Kind: SymbolFunction, Type: sig.Result, Slot: -1, Sig: sig}
	e.values[name] = sym
	return sym, nil
}

func (e *Env) LookupValue(name string) (*Symbol, error) {
	for env := e; env != nil; env = env.parent {
		if sym, ok := env.values[name]; ok {
			return sym, nil
		}
	}
	return nil, errorf(UndeclaredVariable, 0, "%s is not declared", name)
}

// Reassign checks that a value of type t may be stored into the variable
// called name, unifying t with the variable's type.
func (e *Env) Reassign(types *TypeTable, name string, t TypeID) (*Symbol, error) {
	sym, err := e.LookupValue(name)
	if err != nil {
		return nil, err
	}
	if !sym.Mutable {
		return nil, errorf(AssignToConst, 0, "cannot assign to constant %s", name)
	}
	types.Unify(sym.Type, t)
	if !types.Same(sym.Type, t) {
		return nil, errorf(TypeMismatch, 0, "cannot assign %s to %s of type %s", types.Name(t), name, types.Name(sym.Type))
	}
	return sym, nil
}

func (e *Env) DeclareType(decl *StructDecl) error {
	if _, ok := e.structs[decl.Name]; ok {
		return errorf(DuplicateTypeDeclaration, 0, "type %s is already declared", decl.Name)
	}
	e.structs[decl.Name] = decl
	return nil
}

func (e *Env) LookupType(name string) (*StructDecl, bool) {
	for env := e; env != nil; env = env.parent {
		if decl, ok := env.structs[name]; ok {
			return decl, true
		}
	}
	return nil, false
}
