// Package typesystem holds the type descriptors produced by signature decoding
// and the registry that interns them.
package typesystem

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindPrimitive Kind = iota
	KindNominal
	KindByRef
	KindPointer
	KindSZArray
	KindArray
	KindGenericInstance
	KindSignatureVariable
	KindFunctionPointer
)

var kindNames = [...]string{
	KindPrimitive:         "primitive",
	KindNominal:           "nominal",
	KindByRef:             "byref",
	KindPointer:           "pointer",
	KindSZArray:           "szarray",
	KindArray:             "array",
	KindGenericInstance:   "genericinst",
	KindSignatureVariable: "var",
	KindFunctionPointer:   "fnptr",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type is a fully resolved type descriptor. Descriptors are interned by a
// Context, so two descriptors for the same type compare equal with ==.
type Type interface {
	Kind() Kind
	String() string
}

// PrimitiveType is one of the well-known types.
type PrimitiveType struct {
	WellKnown WellKnownType
}

func (t *PrimitiveType) Kind() Kind     { return KindPrimitive }
func (t *PrimitiveType) String() string { return t.WellKnown.String() }

// MetadataType is a nominal type declared in metadata. It is the only kind
// of type a generic instantiation can be built from.
type MetadataType struct {
	Namespace string
	Name      string
}

func (t *MetadataType) Kind() Kind { return KindNominal }

func (t *MetadataType) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// ByRefType is a managed reference to Parameter.
type ByRefType struct {
	Parameter Type
}

func (t *ByRefType) Kind() Kind     { return KindByRef }
func (t *ByRefType) String() string { return t.Parameter.String() + "&" }

// PointerType is an unmanaged pointer to Parameter.
type PointerType struct {
	Parameter Type
}

func (t *PointerType) Kind() Kind     { return KindPointer }
func (t *PointerType) String() string { return t.Parameter.String() + "*" }

// ArrayType is either a single-dimensional zero-based vector or a general
// array of the given rank. A general array of rank 1 is not a vector.
type ArrayType struct {
	Element Type
	Rank    int

	multiDimensional bool
}

func (t *ArrayType) Kind() Kind {
	if t.multiDimensional {
		return KindArray
	}
	return KindSZArray
}

// IsSZArray reports whether the array is a single-dimensional zero-based vector.
func (t *ArrayType) IsSZArray() bool {
	return !t.multiDimensional
}

func (t *ArrayType) String() string {
	if !t.multiDimensional {
		return t.Element.String() + "[]"
	}
	if t.Rank == 1 {
		return t.Element.String() + "[*]"
	}
	return t.Element.String() + "[" + strings.Repeat(",", t.Rank-1) + "]"
}

// SignatureVariable is an unbound reference to the Index-th generic
// parameter of the enclosing type or, when Method is set, method.
type SignatureVariable struct {
	Index  int
	Method bool
}

func (t *SignatureVariable) Kind() Kind { return KindSignatureVariable }

func (t *SignatureVariable) String() string {
	if t.Method {
		return fmt.Sprintf("!!%d", t.Index)
	}
	return fmt.Sprintf("!%d", t.Index)
}

// InstantiatedType is a generic type definition with its parameters
// substituted by Instantiation, in order.
type InstantiatedType struct {
	Definition    *MetadataType
	Instantiation []Type
}

func (t *InstantiatedType) Kind() Kind { return KindGenericInstance }

func (t *InstantiatedType) String() string {
	return t.Definition.String() + "<" + joinTypes(t.Instantiation) + ">"
}

// FunctionPointerType is a pointer to a method with the given signature.
type FunctionPointerType struct {
	Signature *MethodSignature
}

func (t *FunctionPointerType) Kind() Kind { return KindFunctionPointer }

func (t *FunctionPointerType) String() string {
	return "method " + t.Signature.ReturnType.String() + " *(" + joinTypes(t.Signature.Parameters) + ")"
}

func joinTypes(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}
