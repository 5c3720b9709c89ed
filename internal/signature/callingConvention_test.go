package signature

import (
	"testing"

	"ecmasig/internal/blob"
	"ecmasig/internal/typesystem"

	"github.com/microsoft/go-winmd/flags"
)

func TestCallingConventionNumberingMatches(t *testing.T) {
	pairs := []struct {
		callConv flags.SigKind
		flag     typesystem.MethodSignatureFlags
	}{
		{flags.SigKind_C, typesystem.UnmanagedCallingConventionCdecl},
		{flags.SigKind_STDCALL, typesystem.UnmanagedCallingConventionStdCall},
		{flags.SigKind_THISCALL, typesystem.UnmanagedCallingConventionThisCall},
	}

	for _, pair := range pairs {
		if uint16(pair.callConv) != uint16(pair.flag) {
			t.Errorf("calling convention %d maps to flag %d", pair.callConv, pair.flag)
		}
	}
}

func TestMethodSignatureFlags(t *testing.T) {
	tests := []struct {
		header blob.SignatureHeader
		want   typesystem.MethodSignatureFlags
	}{
		{0x00, typesystem.Static},
		{0x20, 0},
		{0x60, 0},
		{0x30, 0},
		{0x01, typesystem.Static | typesystem.UnmanagedCallingConventionCdecl},
		{0x02, typesystem.Static | typesystem.UnmanagedCallingConventionStdCall},
		{0x23, typesystem.UnmanagedCallingConventionThisCall},
		{0x05, typesystem.Static | typesystem.MethodSignatureFlags(blob.CallingConventionVarArgs)},
	}

	for _, tt := range tests {
		if got := methodSignatureFlags(tt.header); got != tt.want {
			t.Errorf("header 0x%02x: got 0x%x, want 0x%x", uint8(tt.header), got, tt.want)
		}
	}
}
