// The package used for resolving signature type handles against Windows Metadata.
package metadata

import (
	"debug/pe"
	"fmt"
	"sync"

	"ecmasig/internal/blob"
	"ecmasig/internal/signature"
	"ecmasig/internal/typesystem"

	"github.com/microsoft/go-winmd"
	"go.uber.org/zap"
)

// WinMdReader resolves the type handles of one module. TypeDef and TypeRef
// rows are looked up in the metadata tables, TypeSpec rows are decoded from
// the blobs registered with RegisterTypeSpec.
type WinMdReader struct {
	metadata *winmd.Metadata
	context  *typesystem.Context
	options  signature.Options

	mu        sync.Mutex
	typeSpecs map[uint32][]byte
	resolved  map[uint32]typesystem.Type
}

// Opens the WinMd file under given path
func NewReader(winMdPath string, context *typesystem.Context, options signature.Options) (*WinMdReader, error) {
	peFile, err := pe.Open(winMdPath)
	if err != nil {
		return nil, fmt.Errorf("could not open metadata file '%s': %w", winMdPath, err)
	}
	defer peFile.Close()

	winmdMetadata, err := winmd.New(peFile)
	if err != nil {
		return nil, fmt.Errorf("could not read metadata from '%s': %w", winMdPath, err)
	}

	return newReader(winmdMetadata, context, options), nil
}

// Creates a reader without metadata tables. TypeDef and TypeRef handles
// resolve to placeholder types named after the handle.
func NewDetachedReader(context *typesystem.Context, options signature.Options) *WinMdReader {
	return newReader(nil, context, options)
}

func newReader(metadata *winmd.Metadata, context *typesystem.Context, options signature.Options) *WinMdReader {
	return &WinMdReader{
		metadata:  metadata,
		context:   context,
		options:   options,
		typeSpecs: make(map[uint32][]byte),
		resolved:  make(map[uint32]typesystem.Type),
	}
}

func (reader *WinMdReader) Context() signature.TypeSystemContext {
	return reader.context
}

// Registers the signature blob of a TypeSpec row
func (reader *WinMdReader) RegisterTypeSpec(row uint32, signatureBlob []byte) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.typeSpecs[row] = signatureBlob
	delete(reader.resolved, row)
}

func (reader *WinMdReader) GetType(handle blob.TypeHandle) (typesystem.Type, error) {
	return reader.getType(handle, nil)
}

func (reader *WinMdReader) getType(handle blob.TypeHandle, chain []uint32) (typesystem.Type, error) {
	if handle.IsNil() {
		return nil, fmt.Errorf("nil type handle %v", handle)
	}

	switch handle.Table {
	case blob.TableTypeDef, blob.TableTypeRef:
		return reader.getNominalType(handle)
	case blob.TableTypeSpec:
		return reader.getTypeSpec(handle.Row, chain)
	}

	return nil, fmt.Errorf("unknown handle table %v", handle.Table)
}

func (reader *WinMdReader) getNominalType(handle blob.TypeHandle) (typesystem.Type, error) {
	if reader.metadata == nil {
		Logger().Debug("no metadata loaded, using placeholder type", zap.Stringer("handle", handle))
		return reader.context.GetMetadataType("", fmt.Sprintf("%s%04X", handle.Table, handle.Row)), nil
	}

	index := winmd.Index(handle.Row - 1)
	if handle.Table == blob.TableTypeDef {
		if uint32(index) >= reader.metadata.Tables.TypeDef.Len {
			return nil, fmt.Errorf("type definition %v is out of range", handle)
		}
		typeDef, err := reader.metadata.Tables.TypeDef.Record(index)
		if err != nil {
			return nil, fmt.Errorf("did not find matching type definition: %w", err)
		}
		return reader.context.GetMetadataType(typeDef.Namespace.String(), typeDef.Name.String()), nil
	}

	if uint32(index) >= reader.metadata.Tables.TypeRef.Len {
		return nil, fmt.Errorf("type reference %v is out of range", handle)
	}
	typeRef, err := reader.metadata.Tables.TypeRef.Record(index)
	if err != nil {
		return nil, fmt.Errorf("did not find matching type reference: %w", err)
	}
	return reader.context.GetMetadataType(typeRef.Namespace.String(), typeRef.Name.String()), nil
}

// getTypeSpec decodes a TypeSpec blob. chain holds the TypeSpec rows being
// decoded by the callers, a row found in it refers to itself.
func (reader *WinMdReader) getTypeSpec(row uint32, chain []uint32) (typesystem.Type, error) {
	for _, pending := range chain {
		if pending == row {
			return nil, fmt.Errorf("type specification %d refers to itself", row)
		}
	}

	reader.mu.Lock()
	resolved, found := reader.resolved[row]
	signatureBlob, registered := reader.typeSpecs[row]
	reader.mu.Unlock()

	if found {
		return resolved, nil
	}
	if !registered {
		return nil, fmt.Errorf("type specification %d has no registered signature", row)
	}

	scope := &typeSpecScope{reader: reader, chain: append(chain[:len(chain):len(chain)], row)}
	resolved, err := signature.NewParserFromReader(scope, blob.NewReader(signatureBlob), reader.options).ParseType()
	if err != nil {
		return nil, err
	}

	Logger().Debug("resolved type specification", zap.Uint32("row", row), zap.Stringer("type", resolved))

	reader.mu.Lock()
	reader.resolved[row] = resolved
	reader.mu.Unlock()

	return resolved, nil
}

// typeSpecScope is the module seen while decoding a TypeSpec blob.
type typeSpecScope struct {
	reader *WinMdReader
	chain  []uint32
}

func (scope *typeSpecScope) Context() signature.TypeSystemContext {
	return scope.reader.context
}

func (scope *typeSpecScope) GetType(handle blob.TypeHandle) (typesystem.Type, error) {
	return scope.reader.getType(handle, scope.chain)
}
