package metadata

import "ecmasig/internal/typesystem"

// Type groups the field signatures declared by one owner type.
type Type struct {
	Name   string
	Fields []Field
}

type Field struct {
	Name string
	Type typesystem.Type
}

type Method struct {
	Name      string
	Signature *typesystem.MethodSignature
}

type Property struct {
	Name      string
	Signature *typesystem.PropertySignature
}
