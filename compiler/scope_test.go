package compiler

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestEnvDeclareAndLookup(t *testing.T) {
	env := NewEnv(nil)
	sym, err := env.DeclareValue("x", I32, true, 0)
	be.Err(t, err, nil)
	be.Equal(t, sym.Slot, 0)
	be.Equal(t, sym.Kind, SymbolValue)

	got, err := env.LookupValue("x")
	be.Err(t, err, nil)
	be.Equal(t, got, sym)

	_, err = env.LookupValue("y")
	be.Err(t, err, "y is not declared")
	be.Equal(t, KindOf(err), UndeclaredVariable)

	_, err = env.DeclareValue("x", I64, true, 1)
	be.Equal(t, KindOf(err), DuplicateDeclaration)
}

func TestEnvShadowing(t *testing.T) {
	outer := NewEnv(nil)
	outer.DeclareValue("x", I32, false, 0)

	inner := NewEnv(outer)
	be.Equal(t, inner.Parent(), outer)
	shadow, err := inner.DeclareValue("x", String, true, 1)
	be.Err(t, err, nil)

	got, _ := inner.LookupValue("x")
	be.Equal(t, got, shadow)
	got, _ = outer.LookupValue("x")
	be.Equal(t, got.Type, I32)

	// Siblings do not see each other.
	sibling := NewEnv(outer)
	sibling.DeclareValue("y", I32, true, 2)
	_, err = inner.LookupValue("y")
	be.Equal(t, KindOf(err), UndeclaredVariable)
}

func TestEnvFunctions(t *testing.T) {
	env := NewEnv(nil)
	sig := &Signature{Params: []TypeID{I32, String}, Result: Bool}
	sym, err := env.DeclareFunction("f", sig)
	be.Err(t, err, nil)
	be.Equal(t, sym.Kind, SymbolFunction)
	be.Equal(t, sym.Arity(), 2)
	be.Equal(t, sym.Type, Bool)
	be.Equal(t, sym.Slot, -1)

	_, err = env.DeclareFunction("f", sig)
	be.Equal(t, KindOf(err), DuplicateDeclaration)
	_, err = env.DeclareValue("f", I32, true, 0)
	be.Equal(t, KindOf(err), DuplicateDeclaration)
}

func TestEnvReassign(t *testing.T) {
	types := NewTypeTable()
	env := NewEnv(nil)
	env.DeclareValue("c", I32, false, 0)
	env.DeclareValue("v", I64, true, 1)
	env.DeclareFunction("f", &Signature{Result: Void})

	_, err := env.Reassign(types, "c", I32)
	be.Err(t, err, "cannot assign to constant c")
	be.Equal(t, KindOf(err), AssignToConst)

	// Constness is checked before the type.
	_, err = env.Reassign(types, "c", String)
	be.Equal(t, KindOf(err), AssignToConst)

	_, err = env.Reassign(types, "f", Void)
	be.Equal(t, KindOf(err), AssignToConst)

	_, err = env.Reassign(types, "v", String)
	be.Equal(t, KindOf(err), TypeMismatch)

	n := types.NewUnknown(SubspecNumber)
	sym, err := env.Reassign(types, "v", n)
	be.Err(t, err, nil)
	be.Equal(t, sym.Slot, 1)
	be.Equal(t, types.Resolve(n), I64)

	_, err = env.Reassign(types, "missing", I32)
	be.Equal(t, KindOf(err), UndeclaredVariable)
}

func TestEnvTypes(t *testing.T) {
	types := NewTypeTable()
	outer := NewEnv(nil)
	decl := &StructDecl{
		Name:   "P",
		Type:   types.StructType("P"),
		Fields: []Field{{Name: "x", Type: I32}, {Name: "y", Type: F64}},
	}
	be.Err(t, outer.DeclareType(decl), nil)

	err := outer.DeclareType(&StructDecl{Name: "P"})
	be.Equal(t, KindOf(err), DuplicateTypeDeclaration)

	inner := NewEnv(outer)
	got, ok := inner.LookupType("P")
	be.True(t, ok)
	be.Equal(t, got, decl)
	_, ok = inner.LookupType("Q")
	be.True(t, !ok)

	f, ok := got.Field("y")
	be.True(t, ok)
	be.Equal(t, f.Type, F64)
	_, ok = got.Field("z")
	be.True(t, !ok)

	// Types and values live in separate namespaces.
	_, err = outer.DeclareValue("P", I32, true, 0)
	be.Err(t, err, nil)
}
