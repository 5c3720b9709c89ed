package typesystem

import "strings"

// MethodSignatureFlags carries the static bit and the unmanaged calling
// convention of a method signature. The low nibble holds the calling
// convention with the same numbering as the signature header.
type MethodSignatureFlags uint16

const (
	UnmanagedCallingConventionMask     MethodSignatureFlags = 0x000F
	UnmanagedCallingConventionCdecl    MethodSignatureFlags = 0x0001
	UnmanagedCallingConventionStdCall  MethodSignatureFlags = 0x0002
	UnmanagedCallingConventionThisCall MethodSignatureFlags = 0x0003

	Static MethodSignatureFlags = 0x0010
)

func (f MethodSignatureFlags) IsStatic() bool {
	return f&Static != 0
}

func (f MethodSignatureFlags) UnmanagedCallingConvention() MethodSignatureFlags {
	return f & UnmanagedCallingConventionMask
}

// MethodSignature is a decoded method, call site or function pointer
// signature. Parameters is never nil.
type MethodSignature struct {
	Flags                 MethodSignatureFlags
	GenericParameterCount int
	ReturnType            Type
	Parameters            []Type
}

func (s *MethodSignature) IsStatic() bool {
	return s.Flags.IsStatic()
}

// Equal reports whether two signatures describe the same method shape.
// Descriptors are interned so element-wise identity is sufficient.
func (s *MethodSignature) Equal(other *MethodSignature) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if s.Flags != other.Flags ||
		s.GenericParameterCount != other.GenericParameterCount ||
		s.ReturnType != other.ReturnType ||
		len(s.Parameters) != len(other.Parameters) {
		return false
	}
	for i := range s.Parameters {
		if s.Parameters[i] != other.Parameters[i] {
			return false
		}
	}
	return true
}

func (s *MethodSignature) String() string {
	var b strings.Builder
	if s.IsStatic() {
		b.WriteString("static ")
	}
	b.WriteString(s.ReturnType.String())
	if s.GenericParameterCount > 0 {
		b.WriteString("<")
		b.WriteString(strings.Repeat(",", s.GenericParameterCount-1))
		b.WriteString(">")
	}
	b.WriteString("(")
	b.WriteString(joinTypes(s.Parameters))
	b.WriteString(")")
	return b.String()
}

// PropertySignature is a decoded property signature. Parameters holds the
// indexer parameters and is never nil.
type PropertySignature struct {
	IsStatic   bool
	Parameters []Type
	ReturnType Type
}

func (s *PropertySignature) String() string {
	prefix := ""
	if s.IsStatic {
		prefix = "static "
	}
	if len(s.Parameters) == 0 {
		return prefix + s.ReturnType.String()
	}
	return prefix + s.ReturnType.String() + "[" + joinTypes(s.Parameters) + "]"
}

// LocalVariableDefinition is one slot of a method's local variable list.
type LocalVariableDefinition struct {
	Type     Type
	IsPinned bool
}

func (l LocalVariableDefinition) String() string {
	if l.IsPinned {
		return l.Type.String() + " pinned"
	}
	return l.Type.String()
}
