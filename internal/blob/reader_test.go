package blob

import (
	"errors"
	"testing"

	"github.com/microsoft/go-winmd/flags"
)

func TestReadCompressedInteger(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
		size    int
	}{
		{[]byte{0x03}, 0x03, 1},
		{[]byte{0x7F}, 0x7F, 1},
		{[]byte{0x80, 0x80}, 0x80, 2},
		{[]byte{0xAE, 0x57}, 0x2E57, 2},
		{[]byte{0xBF, 0xFF}, 0x3FFF, 2},
		{[]byte{0xC0, 0x00, 0x40, 0x00}, 0x4000, 4},
		{[]byte{0xDF, 0xFF, 0xFF, 0xFF}, 0x1FFFFFFF, 4},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadCompressedInteger()
		if err != nil {
			t.Errorf("ReadCompressedInteger(%x): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadCompressedInteger(%x): got 0x%x, want 0x%x", tt.encoded, got, tt.want)
		}
		if r.Offset() != tt.size {
			t.Errorf("ReadCompressedInteger(%x): offset %d, want %d", tt.encoded, r.Offset(), tt.size)
		}
	}
}

func TestReadCompressedIntegerErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		want    error
	}{
		{"empty", nil, ErrTruncated},
		{"two byte truncated", []byte{0x80}, ErrTruncated},
		{"four byte truncated", []byte{0xC0, 0x00, 0x01}, ErrTruncated},
		{"invalid prefix", []byte{0xE0, 0x00, 0x00, 0x00}, ErrInvalidCompressedInteger},
		{"all ones", []byte{0xFF}, ErrInvalidCompressedInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.encoded)
			_, err := r.ReadCompressedInteger()
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if r.Offset() != 0 {
				t.Errorf("offset moved to %d on failure", r.Offset())
			}
		})
	}
}

func TestReadSignatureTypeCode(t *testing.T) {
	r := NewReader([]byte{0x08, 0x45, 0xC0, 0x00, 0x01, 0x00})

	code, err := r.ReadSignatureTypeCode()
	if err != nil || code != flags.ElementType_I4 {
		t.Fatalf("first code: got %v, %v", code, err)
	}
	code, err = r.ReadSignatureTypeCode()
	if err != nil || code != flags.ElementType_PINNED {
		t.Fatalf("second code: got %v, %v", code, err)
	}
	if _, err = r.ReadSignatureTypeCode(); !errors.Is(err, ErrInvalidTypeCode) {
		t.Fatalf("oversized code: got %v, want ErrInvalidTypeCode", err)
	}
}

func TestReadTypeHandle(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    TypeHandle
	}{
		{[]byte{0x08}, TypeHandle{Table: TableTypeDef, Row: 2}},
		{[]byte{0x49}, TypeHandle{Table: TableTypeRef, Row: 0x12}},
		{[]byte{0x82, 0x02}, TypeHandle{Table: TableTypeSpec, Row: 0x80}},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadTypeHandle()
		if err != nil {
			t.Errorf("ReadTypeHandle(%x): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadTypeHandle(%x): got %v, want %v", tt.encoded, got, tt.want)
		}
	}

	r := NewReader([]byte{0x07})
	if _, err := r.ReadTypeHandle(); !errors.Is(err, ErrInvalidTypeHandle) {
		t.Errorf("tag 3: got %v, want ErrInvalidTypeHandle", err)
	}
}

func TestSignatureHeader(t *testing.T) {
	tests := []struct {
		raw      byte
		kind     SignatureKind
		callConv CallingConvention
		instance bool
		generic  bool
	}{
		{0x00, KindMethod, CallingConventionDefault, false, false},
		{0x20, KindMethod, CallingConventionDefault, true, false},
		{0x30, KindMethod, CallingConventionDefault, true, true},
		{0x02, KindMethod, CallingConventionStdCall, false, false},
		{0x05, KindMethod, CallingConventionVarArgs, false, false},
		{0x09, KindMethod, CallingConventionUnmanaged, false, false},
		{0x06, KindField, CallingConventionDefault, false, false},
		{0x07, KindLocalVariables, CallingConventionDefault, false, false},
		{0x28, KindProperty, CallingConventionDefault, true, false},
		{0x0A, KindMethodSpecification, CallingConventionDefault, false, false},
	}

	for _, tt := range tests {
		r := NewReader([]byte{tt.raw})
		h, err := r.ReadSignatureHeader()
		if err != nil {
			t.Fatalf("ReadSignatureHeader(0x%02x): %v", tt.raw, err)
		}
		if h.Kind() != tt.kind {
			t.Errorf("0x%02x kind: got %v, want %v", tt.raw, h.Kind(), tt.kind)
		}
		if h.CallingConvention() != tt.callConv {
			t.Errorf("0x%02x calling convention: got %d, want %d", tt.raw, h.CallingConvention(), tt.callConv)
		}
		if h.IsInstance() != tt.instance {
			t.Errorf("0x%02x instance: got %v", tt.raw, h.IsInstance())
		}
		if h.IsGeneric() != tt.generic {
			t.Errorf("0x%02x generic: got %v", tt.raw, h.IsGeneric())
		}
	}

	r := NewReader([]byte{0x80})
	if _, err := r.ReadSignatureHeader(); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("reserved bit: got %v, want ErrInvalidHeader", err)
	}
}

func TestSignatureHeaderAttributes(t *testing.T) {
	tests := []struct {
		kind       flags.SigKind
		attributes flags.SigAttributes
	}{
		{flags.SigKind_DEFAULT, flags.SigAttributes_NONE},
		{flags.SigKind_STDCALL, flags.SigAttributes_HASTHIS},
		{flags.SigKind_DEFAULT, flags.SigAttributes_HASTHIS | flags.SigAttributes_EXPLICITTHIS},
		{flags.SigKind_THISCALL, flags.SigAttributes_GENERIC | flags.SigAttributes_HASTHIS},
		{flags.SigKind_PROPERTY, flags.SigAttributes_HASTHIS},
		{flags.SigKind_FIELD, flags.SigAttributes_NONE},
	}

	for _, tt := range tests {
		raw := uint8(tt.kind) | uint8(tt.attributes)
		r := NewReader([]byte{raw})
		h, err := r.ReadSignatureHeader()
		if err != nil {
			t.Fatalf("ReadSignatureHeader(0x%02x): %v", raw, err)
		}
		if h.Attributes() != tt.attributes {
			t.Errorf("0x%02x attributes: got 0x%02x, want 0x%02x", raw, h.Attributes(), tt.attributes)
		}
		if h.IsInstance() != (tt.attributes&flags.SigAttributes_HASTHIS != 0) {
			t.Errorf("0x%02x instance: got %v", raw, h.IsInstance())
		}
		if h.HasExplicitThis() != (tt.attributes&flags.SigAttributes_EXPLICITTHIS != 0) {
			t.Errorf("0x%02x explicit this: got %v", raw, h.HasExplicitThis())
		}
		if h.IsGeneric() != (tt.attributes&flags.SigAttributes_GENERIC != 0) {
			t.Errorf("0x%02x generic: got %v", raw, h.IsGeneric())
		}
	}
}

func TestSignatureKindsMatchWinmd(t *testing.T) {
	if KindField != SignatureKind(flags.SigKind_FIELD) || KindLocalVariables != SignatureKind(flags.SigKind_LOCAL) || KindProperty != SignatureKind(flags.SigKind_PROPERTY) {
		t.Error("signature kinds differ from flags.SigKind")
	}
	if CallingConventionVarArgs != CallingConvention(flags.SigKind_VARARG) || CallingConventionFastCall != CallingConvention(flags.SigKind_FASTCALL) {
		t.Error("calling conventions differ from flags.SigKind")
	}
	// The unmanaged and method specification values lie outside flags.SigKind.
	for _, h := range []SignatureHeader{0x09, 0x0A} {
		if h.Kind() == KindField || h.Kind() == KindProperty || h.Kind() == KindLocalVariables {
			t.Errorf("0x%02x: got %v", uint8(h), h.Kind())
		}
	}
}

func TestReaderCopyKeepsPosition(t *testing.T) {
	r := NewReader([]byte{0x06, 0x08})
	peek := r
	if _, err := peek.ReadSignatureHeader(); err != nil {
		t.Fatal(err)
	}
	if r.Offset() != 0 || peek.Offset() != 1 {
		t.Errorf("offsets: original %d, copy %d", r.Offset(), peek.Offset())
	}
}

func TestParseHex(t *testing.T) {
	for _, in := range []string{"07 02 08 1c", "0702081C", "0x0702081c", "07-02-08-1c"} {
		got, err := ParseHex(in)
		if err != nil {
			t.Errorf("ParseHex(%q): %v", in, err)
			continue
		}
		if string(got) != "\x07\x02\x08\x1c" {
			t.Errorf("ParseHex(%q): got %x", in, got)
		}
	}
	if _, err := ParseHex("0g"); err == nil {
		t.Error("expected error for invalid hex")
	}
}
