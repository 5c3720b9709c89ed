// Command sigdump decodes ECMA-335 signature blobs and generates Go
// declarations for the methods, fields and properties they describe.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"ecmasig/internal"
	"ecmasig/internal/blob"
	"ecmasig/internal/generation"
	"ecmasig/internal/metadata"
	"ecmasig/internal/signature"
	"ecmasig/internal/typesystem"

	"go.uber.org/zap"
)

func main() {
	var metadataFilePath = flag.String("metadataPath", "", "The path to the metadata file used to resolve type handles. Without it handles resolve to placeholder types.")
	var download = flag.Bool("download", false, "If given downloads Windows.Win32.winmd to metadataPath when the file does not exist.")
	var inputFilePath = flag.String("input", "", "The path to the file listing signatures to decode, one '<kind> <name> <hex blob>' per line.")
	var packageName = flag.String("packageName", "PInvoke", "The name of the package with generated code. Default: PInvoke")
	var outputPath = flag.String("outputPath", "./output/", "The path where all generated files will be placed.")
	var forceClean = flag.Bool("forceCleanOutput", false, "If given forces cleaning output file before generation.")
	var verbose = flag.Bool("verbose", false, "If given enables debug logging.")
	var maxDepth = flag.Int("maxDepth", signature.DefaultMaxDepth, "The deepest type nesting accepted in a signature.")
	flag.Usage = func() {
		fmt.Println("App that decodes metadata signatures and generates Go declarations for them.")
		flag.PrintDefaults()
	}

	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	metadata.SetLogger(logger)

	if *inputFilePath == "" {
		logger.Fatal("input file path is missing")
	} else if _, err := os.Stat(*inputFilePath); errors.Is(err, os.ErrNotExist) {
		logger.Fatal("input file does not exist", zap.String("path", *inputFilePath))
	}

	context := typesystem.NewContext()
	options := signature.Options{MaxDepth: *maxDepth}

	reader, err := openReader(*metadataFilePath, *download, context, options)
	if err != nil {
		logger.Fatal("could not load metadata", zap.Error(err))
	}

	file, err := os.Open(*inputFilePath)
	internal.PanicOnError(err)
	entries, err := metadata.ReadSignatureList(file)
	file.Close()
	if err != nil {
		logger.Fatal("could not read input file", zap.Error(err))
	}

	// TypeSpec rows can be referenced by entries listed before them
	for _, entry := range entries {
		if entry.Kind != metadata.EntryTypeSpec {
			continue
		}
		row, err := entry.Row()
		if err != nil {
			logger.Fatal("invalid type specification", zap.Error(err))
		}
		reader.RegisterTypeSpec(row, entry.Blob)
	}

	generator := generation.NewGenerator(*packageName, *outputPath)
	failures := 0
	for _, entry := range entries {
		if err := decodeEntry(reader, options, &generator, entry, logger); err != nil {
			failures++
			logger.Error("could not decode signature",
				zap.Int("line", entry.Line),
				zap.String("kind", string(entry.Kind)),
				zap.String("name", entry.Name),
				zap.Bool("unsupported", errors.Is(err, signature.ErrUnsupported)),
				zap.Error(err))
		}
	}

	err = os.Mkdir(*outputPath, os.ModePerm)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		panic(err)
	}

	err = ClearDirectoryIfNotEmpty(*outputPath, *forceClean, logger)
	internal.PanicOnError(err)

	if err := generator.Generate(); err != nil {
		logger.Fatal("could not generate code", zap.Error(err))
	}

	logger.Info("done", zap.Int("signatures", len(entries)), zap.Int("failures", failures))
	if failures > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	internal.PanicOnError(err)
	return logger
}

func openReader(path string, download bool, context *typesystem.Context, options signature.Options) (*metadata.WinMdReader, error) {
	if path == "" {
		return metadata.NewDetachedReader(context, options), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !download {
			return nil, fmt.Errorf("metadata file '%s' does not exist", path)
		}
		if err := metadata.DownloadMetadata(path); err != nil {
			return nil, fmt.Errorf("could not download metadata: %w", err)
		}
	}

	return metadata.NewReader(path, context, options)
}

// Decodes a single entry and registers the result with generator
func decodeEntry(module signature.Module, options signature.Options, generator *generation.Generator, entry metadata.Entry, logger *zap.Logger) error {
	parser := signature.NewParserFromReader(module, blob.NewReader(entry.Blob), options)
	entryLogger := logger.With(zap.Int("line", entry.Line), zap.String("kind", string(entry.Kind)), zap.String("name", entry.Name))

	kind := entry.Kind
	if kind == metadata.EntryMember {
		kind = metadata.EntryMethod
		if parser.IsFieldSignature() {
			kind = metadata.EntryField
		}
	}

	var decoded fmt.Stringer
	switch kind {
	case metadata.EntryTypeSpec:
		row, err := entry.Row()
		if err != nil {
			return err
		}
		t, err := module.GetType(blob.TypeHandle{Table: blob.TableTypeSpec, Row: row})
		if err != nil {
			return err
		}
		entryLogger.Info("decoded type specification", zap.Stringer("type", t))
		return nil

	case metadata.EntryType:
		t, err := parser.ParseType()
		if err != nil {
			return err
		}
		decoded = t

	case metadata.EntryMethod:
		methodSignature, err := parser.ParseMethodSignature()
		if err != nil {
			return err
		}
		generator.RegisterMethod(metadata.Method{Name: entry.Name, Signature: methodSignature})
		decoded = methodSignature

	case metadata.EntryField:
		fieldType, err := parser.ParseFieldSignature()
		if err != nil {
			return err
		}
		owner, name := splitMemberName(entry.Name)
		generator.RegisterField(owner, metadata.Field{Name: name, Type: fieldType})
		decoded = fieldType

	case metadata.EntryProperty:
		propertySignature, err := parser.ParsePropertySignature()
		if err != nil {
			return err
		}
		generator.RegisterProperty(metadata.Property{Name: entry.Name, Signature: propertySignature})
		decoded = propertySignature

	case metadata.EntryLocals:
		locals, err := parser.ParseLocalsSignature()
		if err != nil {
			return err
		}
		decoded = localList(locals)

	case metadata.EntryMethodSpec:
		arguments, err := parser.ParseMethodSpecSignature()
		if err != nil {
			return err
		}
		decoded = typeList(arguments)

	default:
		return fmt.Errorf("unknown signature kind '%s'", entry.Kind)
	}

	if parser.Remaining() > 0 {
		entryLogger.Warn("trailing bytes after signature", zap.Int("remaining", parser.Remaining()))
	}
	entryLogger.Info("decoded signature", zap.Stringer("signature", decoded))
	return nil
}

// Splits "Owner.Field" into owner and field name. Fields without owner are
// grouped under "Fields".
func splitMemberName(name string) (owner string, member string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "Fields", name
	}
	return name[:i], name[i+1:]
}

type typeList []typesystem.Type

func (list typeList) String() string {
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.String()
	}
	return "<" + strings.Join(names, ",") + ">"
}

type localList []typesystem.LocalVariableDefinition

func (list localList) String() string {
	names := make([]string, len(list))
	for i, local := range list {
		names[i] = fmt.Sprintf("[%d] %s", i, local)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func ClearDirectoryIfNotEmpty(path string, silent bool, logger *zap.Logger) error {
	directory, err := os.Open(path)
	if err != nil {
		return err
	}
	defer directory.Close()

	_, err = directory.Readdirnames(1)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return err
	}

	var response string
	if !silent {
		fmt.Print("Output directory is not empty. Continuation will result in removing all output file. Proceed? [Y/n]")
		fmt.Scan(&response)
		if strings.ToUpper(response) != "Y" {
			logger.Fatal("explicit agreement was not given, exiting")
		}
	}

	logger.Info("cleaning output directory", zap.String("path", path))
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.Mkdir(path, os.ModePerm)
}
