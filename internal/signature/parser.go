// Package signature decodes ECMA-335 signature blobs into type descriptors.
//
// A Parser walks one blob. It resolves type handles through a Module and
// builds every composite descriptor through the Module's TypeSystemContext,
// so the descriptors it returns are always fully resolved. Parsers are not
// safe for concurrent use, but any number of them may share a Module whose
// context is.
package signature

import (
	"errors"

	"ecmasig/internal/blob"
	"ecmasig/internal/typesystem"

	"github.com/microsoft/go-winmd/flags"
)

// DefaultMaxDepth bounds type nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 256

// GenericParam.Number is a 2-byte column.
const maxGenericArity = 0xFFFF

// Options configures a Parser. The zero value uses the defaults.
type Options struct {
	// MaxDepth is the deepest nesting of types accepted before the parse
	// fails with KindTooDeep.
	MaxDepth int
}

// Parser decodes the signatures of a single blob.
type Parser struct {
	module   Module
	reader   blob.Reader
	maxDepth int
	depth    int
}

// NewParser creates a Parser over a signature blob of module.
func NewParser(module Module, data []byte) *Parser {
	return NewParserFromReader(module, blob.NewReader(data), Options{})
}

// NewParserFromReader creates a Parser starting at the position of reader.
// The reader is copied, the caller's cursor does not move.
func NewParserFromReader(module Module, reader blob.Reader, options Options) *Parser {
	maxDepth := options.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{
		module:   module,
		reader:   reader,
		maxDepth: maxDepth,
	}
}

// Offset returns the number of bytes consumed so far.
func (p *Parser) Offset() int {
	return p.reader.Offset()
}

// Remaining returns the number of bytes not consumed yet.
func (p *Parser) Remaining() int {
	return p.reader.Remaining()
}

// The map of element types that denote a well-known type on their own
var wellKnownElementTypes = map[flags.ElementType]typesystem.WellKnownType{
	flags.ElementType_VOID:    typesystem.WellKnownVoid,
	flags.ElementType_BOOLEAN: typesystem.WellKnownBoolean,
	flags.ElementType_CHAR:    typesystem.WellKnownChar,
	flags.ElementType_I1:      typesystem.WellKnownSByte,
	flags.ElementType_U1:      typesystem.WellKnownByte,
	flags.ElementType_I2:      typesystem.WellKnownInt16,
	flags.ElementType_U2:      typesystem.WellKnownUInt16,
	flags.ElementType_I4:      typesystem.WellKnownInt32,
	flags.ElementType_U4:      typesystem.WellKnownUInt32,
	flags.ElementType_I8:      typesystem.WellKnownInt64,
	flags.ElementType_U8:      typesystem.WellKnownUInt64,
	flags.ElementType_R4:      typesystem.WellKnownSingle,
	flags.ElementType_R8:      typesystem.WellKnownDouble,
	flags.ElementType_STRING:  typesystem.WellKnownString,
	flags.ElementType_I:       typesystem.WellKnownIntPtr,
	flags.ElementType_U:       typesystem.WellKnownUIntPtr,
	flags.ElementType_OBJECT:  typesystem.WellKnownObject,
}

// ParseType decodes one type, skipping any leading custom modifiers and
// pinned markers.
func (p *Parser) ParseType() (typesystem.Type, error) {
	typeCode, err := p.parseTypeCode(true)
	if err != nil {
		return nil, err
	}
	return p.parseType(typeCode)
}

func (p *Parser) parseType(typeCode flags.ElementType) (typesystem.Type, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, &Error{Kind: KindTooDeep, Offset: p.reader.Offset(), Detail: "type nesting exceeds the depth limit"}
	}

	context := p.module.Context()

	if wellKnown, found := wellKnownElementTypes[typeCode]; found {
		return context.GetWellKnownType(wellKnown), nil
	}

	switch typeCode {
	case flags.ElementType_CLASS, flags.ElementType_VALUETYPE:
		return p.parseTypeHandle()

	case flags.ElementType_SZARRAY:
		element, err := p.ParseType()
		if err != nil {
			return nil, err
		}
		return context.GetArrayType(element), nil

	case flags.ElementType_ARRAY:
		return p.parseArray()

	case flags.ElementType_BYREF:
		parameter, err := p.ParseType()
		if err != nil {
			return nil, err
		}
		return context.GetByRefType(parameter), nil

	case flags.ElementType_PTR:
		parameter, err := p.ParseType()
		if err != nil {
			return nil, err
		}
		return context.GetPointerType(parameter), nil

	case flags.ElementType_VAR, flags.ElementType_MVAR:
		index, err := p.readCompressedInteger("generic parameter index")
		if err != nil {
			return nil, err
		}
		return context.GetSignatureVariable(index, typeCode == flags.ElementType_MVAR), nil

	case flags.ElementType_GENERICINST:
		return p.parseGenericInstance()

	case flags.ElementType_TYPEDBYREF:
		return nil, &Error{
			Kind:   KindUnsupported,
			Offset: p.reader.Offset(),
			Detail: "TypedReference is not supported on this platform",
		}

	case flags.ElementType_FNPTR:
		signature, err := p.ParseMethodSignature()
		if err != nil {
			return nil, err
		}
		return context.GetFunctionPointerType(signature), nil
	}

	return nil, p.malformed(nil, "unexpected type code 0x%02x", uint8(typeCode))
}

func (p *Parser) parseTypeHandle() (typesystem.Type, error) {
	handle, err := p.reader.ReadTypeHandle()
	if err != nil {
		return nil, p.malformed(err, "reading type handle")
	}

	t, err := p.module.GetType(handle)
	if err != nil {
		var signatureErr *Error
		if errors.As(err, &signatureErr) {
			return nil, err
		}
		return nil, p.malformed(err, "could not resolve %v", handle)
	}
	return t, nil
}

// parseArray reads element type, rank, sizes and lower bounds, in that order.
// Sizes and lower bounds are consumed but not modeled.
func (p *Parser) parseArray() (typesystem.Type, error) {
	element, err := p.ParseType()
	if err != nil {
		return nil, err
	}

	rank, err := p.readCompressedInteger("array rank")
	if err != nil {
		return nil, err
	}
	if rank == 0 {
		return nil, p.malformed(nil, "array rank must not be zero")
	}

	for _, what := range []string{"array size", "array lower bound"} {
		count, err := p.readCompressedInteger(what + " count")
		if err != nil {
			return nil, err
		}
		if count > rank {
			return nil, p.malformed(nil, "%d %ss for an array of rank %d", count, what, rank)
		}
		for i := 0; i < count; i++ {
			if _, err := p.readCompressedInteger(what); err != nil {
				return nil, err
			}
		}
	}

	return p.module.Context().GetMDArrayType(element, rank), nil
}

func (p *Parser) parseGenericInstance() (typesystem.Type, error) {
	t, err := p.ParseType()
	if err != nil {
		return nil, err
	}
	definition, ok := t.(*typesystem.MetadataType)
	if !ok {
		return nil, p.malformed(nil, "generic instantiation of non-nominal type %v", t)
	}

	count, err := p.readCount("generic argument count")
	if err != nil {
		return nil, err
	}

	instantiation := make([]typesystem.Type, count)
	for i := range instantiation {
		if instantiation[i], err = p.ParseType(); err != nil {
			return nil, err
		}
	}

	return p.module.Context().GetInstantiatedType(definition, instantiation), nil
}

// parseTypeCode returns the next type code that is not a custom modifier.
// Pinned markers are skipped too unless skipPinned is false.
// TODO: keep custom modifiers and pinned markers on the descriptor, overloads
// can differ in them alone.
func (p *Parser) parseTypeCode(skipPinned bool) (flags.ElementType, error) {
	for {
		typeCode, err := p.reader.ReadSignatureTypeCode()
		if err != nil {
			return 0, p.malformed(err, "reading type code")
		}

		if typeCode == flags.ElementType_CMOD_REQD || typeCode == flags.ElementType_CMOD_OPT {
			if _, err := p.reader.ReadTypeHandle(); err != nil {
				return 0, p.malformed(err, "reading custom modifier")
			}
			continue
		}

		if skipPinned && typeCode == flags.ElementType_PINNED {
			continue
		}

		return typeCode, nil
	}
}

// IsFieldSignature reports whether the blob is a field signature without
// consuming anything.
func (p *Parser) IsFieldSignature() bool {
	peek := p.reader
	header, err := peek.ReadSignatureHeader()
	return err == nil && header.Kind() == blob.KindField
}

// ParseMethodSignature decodes a method definition, method reference,
// stand-alone call site or function pointer signature.
func (p *Parser) ParseMethodSignature() (*typesystem.MethodSignature, error) {
	header, err := p.readHeader()
	if err != nil {
		return nil, err
	}

	arity := 0
	if header.IsGeneric() {
		if arity, err = p.readCompressedInteger("generic arity"); err != nil {
			return nil, err
		}
		if arity > maxGenericArity {
			return nil, p.malformed(nil, "generic arity %d exceeds %d", arity, maxGenericArity)
		}
	}

	count, err := p.readCount("parameter count")
	if err != nil {
		return nil, err
	}

	returnType, err := p.ParseType()
	if err != nil {
		return nil, err
	}

	parameters, err := p.parseTypes(count)
	if err != nil {
		return nil, err
	}

	return &typesystem.MethodSignature{
		Flags:                 methodSignatureFlags(header),
		GenericParameterCount: arity,
		ReturnType:            returnType,
		Parameters:            parameters,
	}, nil
}

// ParsePropertySignature decodes a property signature. The property type
// precedes the indexer parameters.
func (p *Parser) ParsePropertySignature() (*typesystem.PropertySignature, error) {
	header, err := p.expectHeader(blob.KindProperty)
	if err != nil {
		return nil, err
	}

	count, err := p.readCount("parameter count")
	if err != nil {
		return nil, err
	}

	returnType, err := p.ParseType()
	if err != nil {
		return nil, err
	}

	parameters, err := p.parseTypes(count)
	if err != nil {
		return nil, err
	}

	return &typesystem.PropertySignature{
		IsStatic:   !header.IsInstance(),
		Parameters: parameters,
		ReturnType: returnType,
	}, nil
}

// ParseFieldSignature decodes a field signature into the field type.
func (p *Parser) ParseFieldSignature() (typesystem.Type, error) {
	if _, err := p.expectHeader(blob.KindField); err != nil {
		return nil, err
	}
	return p.ParseType()
}

// ParseLocalsSignature decodes a local variable list. The result is indexed
// by local slot and is never nil.
func (p *Parser) ParseLocalsSignature() ([]typesystem.LocalVariableDefinition, error) {
	if _, err := p.expectHeader(blob.KindLocalVariables); err != nil {
		return nil, err
	}

	count, err := p.readCount("local variable count")
	if err != nil {
		return nil, err
	}

	locals := make([]typesystem.LocalVariableDefinition, count)
	for i := range locals {
		isPinned := false

		typeCode, err := p.parseTypeCode(false)
		if err != nil {
			return nil, err
		}
		if typeCode == flags.ElementType_PINNED {
			isPinned = true
			if typeCode, err = p.parseTypeCode(true); err != nil {
				return nil, err
			}
		}

		t, err := p.parseType(typeCode)
		if err != nil {
			return nil, err
		}
		locals[i] = typesystem.LocalVariableDefinition{Type: t, IsPinned: isPinned}
	}

	return locals, nil
}

// ParseMethodSpecSignature decodes the type arguments of a generic method
// instantiation. At least one argument is required.
func (p *Parser) ParseMethodSpecSignature() ([]typesystem.Type, error) {
	if _, err := p.expectHeader(blob.KindMethodSpecification); err != nil {
		return nil, err
	}

	count, err := p.readCount("generic argument count")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, p.malformed(nil, "method instantiation without type arguments")
	}

	return p.parseTypes(count)
}

func (p *Parser) parseTypes(count int) ([]typesystem.Type, error) {
	types := make([]typesystem.Type, count)
	for i := range types {
		t, err := p.ParseType()
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func (p *Parser) readHeader() (blob.SignatureHeader, error) {
	header, err := p.reader.ReadSignatureHeader()
	if err != nil {
		return 0, p.malformed(err, "reading signature header")
	}
	return header, nil
}

func (p *Parser) expectHeader(kind blob.SignatureKind) (blob.SignatureHeader, error) {
	header, err := p.readHeader()
	if err != nil {
		return 0, err
	}
	if header.Kind() != kind {
		return 0, p.malformed(nil, "expected %v signature, found %v", kind, header)
	}
	return header, nil
}

func (p *Parser) readCompressedInteger(what string) (int, error) {
	v, err := p.reader.ReadCompressedInteger()
	if err != nil {
		return 0, p.malformed(err, "reading %s", what)
	}
	return int(v), nil
}

// readCount reads an element count. Every element takes at least one byte,
// so a count larger than what is left cannot be valid.
func (p *Parser) readCount(what string) (int, error) {
	count, err := p.readCompressedInteger(what)
	if err != nil {
		return 0, err
	}
	if count > p.reader.Remaining() {
		return 0, p.malformed(nil, "%s %d exceeds the %d bytes left", what, count, p.reader.Remaining())
	}
	return count, nil
}
