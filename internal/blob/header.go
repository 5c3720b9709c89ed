package blob

import (
	"fmt"

	"github.com/microsoft/go-winmd/flags"
)

// HandleTable is the metadata table a TypeHandle points into.
type HandleTable uint8

const (
	TableTypeDef  HandleTable = 0
	TableTypeRef  HandleTable = 1
	TableTypeSpec HandleTable = 2
)

func (t HandleTable) String() string {
	switch t {
	case TableTypeDef:
		return "TypeDef"
	case TableTypeRef:
		return "TypeRef"
	case TableTypeSpec:
		return "TypeSpec"
	}
	return fmt.Sprintf("HandleTable(%d)", uint8(t))
}

// TypeHandle identifies a row of the TypeDef, TypeRef or TypeSpec table.
// Rows are 1-based, row 0 is the null handle.
type TypeHandle struct {
	Table HandleTable
	Row   uint32
}

func (h TypeHandle) IsNil() bool {
	return h.Row == 0
}

func (h TypeHandle) String() string {
	return fmt.Sprintf("%s(0x%06x)", h.Table, h.Row)
}

// SignatureKind discriminates what a signature blob describes.
type SignatureKind flags.SigKind

const (
	KindMethod         = SignatureKind(flags.SigKind_DEFAULT)
	KindField          = SignatureKind(flags.SigKind_FIELD)
	KindLocalVariables = SignatureKind(flags.SigKind_LOCAL)
	KindProperty       = SignatureKind(flags.SigKind_PROPERTY)
	// Defined in §II.23.2.15, missing from flags.SigKind.
	KindMethodSpecification SignatureKind = 0x0A
)

func (k SignatureKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	case KindLocalVariables:
		return "locals"
	case KindProperty:
		return "property"
	case KindMethodSpecification:
		return "methodspec"
	}
	return fmt.Sprintf("SignatureKind(0x%02x)", uint8(k))
}

// CallingConvention is the calling convention nibble of a method header.
type CallingConvention flags.SigKind

const (
	CallingConventionDefault  = CallingConvention(flags.SigKind_DEFAULT)
	CallingConventionCDecl    = CallingConvention(flags.SigKind_C)
	CallingConventionStdCall  = CallingConvention(flags.SigKind_STDCALL)
	CallingConventionThisCall = CallingConvention(flags.SigKind_THISCALL)
	CallingConventionFastCall = CallingConvention(flags.SigKind_FASTCALL)
	CallingConventionVarArgs  = CallingConvention(flags.SigKind_VARARG)
	// IMAGE_CEE_CS_CALLCONV_UNMANAGED, missing from flags.SigKind.
	CallingConventionUnmanaged CallingConvention = 0x09
)

const (
	headerKindMask = 0x0F
	headerReserved = 0x80
)

// SignatureHeader is the first byte of every signature blob.
type SignatureHeader uint8

// Kind reports the signature kind. Every calling convention value
// denotes a method signature.
func (h SignatureHeader) Kind() SignatureKind {
	v := uint8(h) & headerKindMask
	if v <= uint8(CallingConventionVarArgs) || v == uint8(CallingConventionUnmanaged) {
		return KindMethod
	}
	return SignatureKind(v)
}

// CallingConvention reports the calling convention, Default for non-method
// signatures.
func (h SignatureHeader) CallingConvention() CallingConvention {
	if h.Kind() != KindMethod {
		return CallingConventionDefault
	}
	return CallingConvention(uint8(h) & headerKindMask)
}

// Attributes returns the attribute bits of the header.
func (h SignatureHeader) Attributes() flags.SigAttributes {
	return flags.SigAttributes(uint8(h) &^ headerKindMask)
}

func (h SignatureHeader) IsInstance() bool {
	return h.Attributes()&flags.SigAttributes_HASTHIS != 0
}

func (h SignatureHeader) HasExplicitThis() bool {
	return h.Attributes()&flags.SigAttributes_EXPLICITTHIS != 0
}

func (h SignatureHeader) IsGeneric() bool {
	return h.Attributes()&flags.SigAttributes_GENERIC != 0
}

func (h SignatureHeader) String() string {
	return fmt.Sprintf("%s(0x%02x)", h.Kind(), uint8(h))
}
