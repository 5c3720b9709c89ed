package signature

import (
	"ecmasig/internal/blob"
	"ecmasig/internal/typesystem"

	"github.com/microsoft/go-winmd/flags"
)

// The unmanaged calling conventions of a signature header and of
// MethodSignatureFlags share their numbering, methodSignatureFlags relies on
// it. Each line fails to compile if the two values drift apart.
var (
	_ = [1]struct{}{}[int(typesystem.UnmanagedCallingConventionCdecl)-int(flags.SigKind_C)]
	_ = [1]struct{}{}[int(typesystem.UnmanagedCallingConventionStdCall)-int(flags.SigKind_STDCALL)]
	_ = [1]struct{}{}[int(typesystem.UnmanagedCallingConventionThisCall)-int(flags.SigKind_THISCALL)]
)

// methodSignatureFlags translates a header into signature flags.
func methodSignatureFlags(header blob.SignatureHeader) typesystem.MethodSignatureFlags {
	var result typesystem.MethodSignatureFlags

	if callConv := header.CallingConvention(); callConv != blob.CallingConventionDefault {
		result = typesystem.MethodSignatureFlags(callConv) & typesystem.UnmanagedCallingConventionMask
	}

	if !header.IsInstance() {
		result |= typesystem.Static
	}

	return result
}
