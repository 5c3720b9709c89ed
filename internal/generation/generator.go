package generation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ecmasig/internal/metadata"
	"ecmasig/internal/typesystem"

	"github.com/dave/jennifer/jen"
)

// Generator turns decoded signatures into Go declarations: func types for
// methods and properties, structs for the fields of each owner type.
type Generator struct {
	Methods     []metadata.Method
	Properties  []metadata.Property
	Types       map[string]*metadata.Type
	PackageName string
	OutputPath  string
}

func NewGenerator(packageName string, outputPath string) Generator {
	return Generator{
		make([]metadata.Method, 0),
		make([]metadata.Property, 0),
		make(map[string]*metadata.Type, 0),
		packageName,
		outputPath,
	}
}

func (generator *Generator) RegisterMethod(element metadata.Method) {
	generator.Methods = append(generator.Methods, element)
}

func (generator *Generator) RegisterProperty(element metadata.Property) {
	generator.Properties = append(generator.Properties, element)
}

// Adds field to the struct generated for owner
func (generator *Generator) RegisterField(owner string, field metadata.Field) {
	element, found := generator.Types[owner]
	if !found {
		element = &metadata.Type{Name: owner}
		generator.Types[owner] = element
	}
	element.Fields = append(element.Fields, field)
}

func (generator *Generator) Generate() error {
	if err := generator.checkNames(); err != nil {
		return err
	}

	err := os.Mkdir(generator.OutputPath, os.ModePerm)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}

	for _, name := range generator.typeNames() {
		file := generator.typeFile(generator.Types[name])
		if err := file.Save(filepath.Join(generator.OutputPath, goName(name)+".go")); err != nil {
			return fmt.Errorf("could not save type '%s': %w", name, err)
		}
	}

	if len(generator.Methods) == 0 && len(generator.Properties) == 0 {
		return nil
	}

	file := generator.methodsFile()
	if err := file.Save(filepath.Join(generator.OutputPath, generator.PackageName+".go")); err != nil {
		return fmt.Errorf("could not save methods: %w", err)
	}
	return nil
}

// All declarations share one package and every type gets its own file, so two
// names that map to the same Go identifier cannot both be generated.
func (generator *Generator) checkNames() error {
	declared := make(map[string]string)
	declare := func(name string) error {
		id := goName(name)
		if previous, found := declared[id]; found {
			return fmt.Errorf("'%s' and '%s' both generate '%s'", previous, name, id)
		}
		declared[id] = name
		return nil
	}

	if len(generator.Methods) > 0 || len(generator.Properties) > 0 {
		declared[generator.PackageName] = generator.PackageName + ".go"
	}
	for _, name := range generator.typeNames() {
		if err := declare(name); err != nil {
			return err
		}
	}
	for _, method := range generator.Methods {
		if err := declare(method.Name); err != nil {
			return err
		}
	}
	for _, property := range generator.Properties {
		if err := declare(property.Name); err != nil {
			return err
		}
	}
	return nil
}

func (generator *Generator) typeNames() []string {
	names := make([]string, 0, len(generator.Types))
	for name := range generator.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (generator *Generator) typeFile(t *metadata.Type) *jen.File {
	file := jen.NewFile(generator.PackageName)

	fieldTypes := make([]typesystem.Type, len(t.Fields))
	for i, field := range t.Fields {
		fieldTypes[i] = field.Type
	}

	declaration(file, t.Name, typeParameters(0, fieldTypes...)).StructFunc(func(g *jen.Group) {
		for _, field := range t.Fields {
			g.Id(goName(field.Name)).Add(goType(field.Type))
		}
	})

	return file
}

func (generator *Generator) methodsFile() *jen.File {
	file := jen.NewFile(generator.PackageName)

	for _, method := range generator.Methods {
		signature := method.Signature
		file.Comment(fmt.Sprintf("%s %s", goName(method.Name), signature))
		generator.writeFuncType(file, method.Name, signature.GenericParameterCount, signature.ReturnType, signature.Parameters)
	}

	for _, property := range generator.Properties {
		signature := property.Signature
		file.Comment(fmt.Sprintf("%s %s", goName(property.Name), signature))
		generator.writeFuncType(file, property.Name, 0, signature.ReturnType, signature.Parameters)
	}

	return file
}

func (generator *Generator) writeFuncType(file *jen.File, name string, arity int, returnType typesystem.Type, parameters []typesystem.Type) {
	all := append([]typesystem.Type{returnType}, parameters...)

	funcHeader := declaration(file, name, typeParameters(arity, all...)).Func().ParamsFunc(func(g *jen.Group) {
		for i, param := range parameters {
			g.Id(fmt.Sprintf("p%d", i)).Add(goType(param))
		}
	})

	if !isVoid(returnType) {
		funcHeader.Add(goType(returnType))
	}

	file.Line()
}

func declaration(file *jen.File, name string, parameters []jen.Code) *jen.Statement {
	statement := file.Type().Id(goName(name))
	if len(parameters) > 0 {
		statement.Types(parameters...)
	}
	return statement
}

// The map of well-known types to Go equivalents
var builtInTypes = map[typesystem.WellKnownType]string{
	typesystem.WellKnownBoolean: "bool",
	typesystem.WellKnownChar:    "uint16",
	typesystem.WellKnownSByte:   "int8",
	typesystem.WellKnownByte:    "uint8",
	typesystem.WellKnownInt16:   "int16",
	typesystem.WellKnownUInt16:  "uint16",
	typesystem.WellKnownInt32:   "int32",
	typesystem.WellKnownUInt32:  "uint32",
	typesystem.WellKnownInt64:   "int64",
	typesystem.WellKnownUInt64:  "uint64",
	typesystem.WellKnownIntPtr:  "uintptr",
	typesystem.WellKnownUIntPtr: "uintptr",
	typesystem.WellKnownSingle:  "float32",
	typesystem.WellKnownDouble:  "float64",
	typesystem.WellKnownString:  "string",
	typesystem.WellKnownObject:  "any",
}

func goType(t typesystem.Type) jen.Code {
	switch t := t.(type) {
	case *typesystem.PrimitiveType:
		if builtInType, found := builtInTypes[t.WellKnown]; found {
			return jen.Id(builtInType)
		}
		return jen.Struct()
	case *typesystem.MetadataType:
		return jen.Id(goName(t.Name))
	case *typesystem.PointerType:
		if isVoid(t.Parameter) {
			return jen.Qual("unsafe", "Pointer")
		}
		return jen.Op("*").Add(goType(t.Parameter))
	case *typesystem.ByRefType:
		return jen.Op("*").Add(goType(t.Parameter))
	case *typesystem.ArrayType:
		statement := jen.Index()
		for i := 1; i < t.Rank; i++ {
			statement.Index()
		}
		return statement.Add(goType(t.Element))
	case *typesystem.InstantiatedType:
		arguments := make([]jen.Code, len(t.Instantiation))
		for i, argument := range t.Instantiation {
			arguments[i] = goType(argument)
		}
		statement := jen.Id(goName(t.Definition.Name))
		if len(arguments) > 0 {
			statement.Types(arguments...)
		}
		return statement
	case *typesystem.SignatureVariable:
		return jen.Id(variableName(t))
	case *typesystem.FunctionPointerType:
		return jen.Uintptr()
	}
	return jen.Id("any")
}

// typeParameters declares every signature variable used by types, plus the
// first arity method variables.
func typeParameters(arity int, types ...typesystem.Type) []jen.Code {
	used := make(map[typesystem.SignatureVariable]bool)
	for i := 0; i < arity; i++ {
		used[typesystem.SignatureVariable{Index: i, Method: true}] = true
	}
	for _, t := range types {
		collectVariables(t, used)
	}

	variables := make([]typesystem.SignatureVariable, 0, len(used))
	for variable := range used {
		variables = append(variables, variable)
	}
	sort.Slice(variables, func(i, j int) bool {
		if variables[i].Method != variables[j].Method {
			return !variables[i].Method
		}
		return variables[i].Index < variables[j].Index
	})

	parameters := make([]jen.Code, len(variables))
	for i := range variables {
		parameters[i] = jen.Id(variableName(&variables[i])).Id("any")
	}
	return parameters
}

func collectVariables(t typesystem.Type, used map[typesystem.SignatureVariable]bool) {
	switch t := t.(type) {
	case *typesystem.SignatureVariable:
		used[*t] = true
	case *typesystem.PointerType:
		collectVariables(t.Parameter, used)
	case *typesystem.ByRefType:
		collectVariables(t.Parameter, used)
	case *typesystem.ArrayType:
		collectVariables(t.Element, used)
	case *typesystem.InstantiatedType:
		for _, argument := range t.Instantiation {
			collectVariables(argument, used)
		}
	}
}

func variableName(variable *typesystem.SignatureVariable) string {
	if variable.Method {
		return fmt.Sprintf("M%d", variable.Index)
	}
	return fmt.Sprintf("T%d", variable.Index)
}

func isVoid(t typesystem.Type) bool {
	primitive, ok := t.(*typesystem.PrimitiveType)
	return ok && primitive.WellKnown == typesystem.WellKnownVoid
}

// Strips generic arity and namespace and replaces characters Go does not
// allow in identifiers
func goName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '`'); i >= 0 {
		name = name[:i]
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return '_'
	}, name)
}
