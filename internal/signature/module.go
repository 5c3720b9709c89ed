package signature

import (
	"ecmasig/internal/blob"
	"ecmasig/internal/typesystem"
)

// TypeSystemContext builds and interns type descriptors.
// *typesystem.Context implements it.
type TypeSystemContext interface {
	GetWellKnownType(w typesystem.WellKnownType) typesystem.Type
	GetArrayType(element typesystem.Type) typesystem.Type
	GetMDArrayType(element typesystem.Type, rank int) typesystem.Type
	GetByRefType(parameter typesystem.Type) typesystem.Type
	GetPointerType(parameter typesystem.Type) typesystem.Type
	GetSignatureVariable(index int, method bool) typesystem.Type
	GetInstantiatedType(definition *typesystem.MetadataType, instantiation []typesystem.Type) typesystem.Type
	GetFunctionPointerType(signature *typesystem.MethodSignature) typesystem.Type
}

// Module resolves the type handles embedded in signatures of one metadata
// module. Implementations shared between goroutines must be safe for
// concurrent use.
type Module interface {
	Context() TypeSystemContext
	GetType(handle blob.TypeHandle) (typesystem.Type, error)
}

var _ TypeSystemContext = (*typesystem.Context)(nil)
