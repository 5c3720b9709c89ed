// Package blob reads the compressed primitives that make up ECMA-335
// signature blobs.
package blob

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/go-winmd/flags"
)

var (
	ErrTruncated                = errors.New("blob: unexpected end of signature")
	ErrInvalidCompressedInteger = errors.New("blob: invalid compressed integer")
	ErrInvalidTypeCode          = errors.New("blob: invalid signature type code")
	ErrInvalidTypeHandle        = errors.New("blob: invalid type handle")
	ErrInvalidHeader            = errors.New("blob: invalid signature header")
)

// Reader is a cursor over a signature blob.
// Copying a Reader duplicates its position, so reading a copy peeks.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) Reader {
	return Reader{data: data}
}

// Offset returns the current byte position.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadCompressedInteger reads an unsigned integer in the ECMA-335 §II.23.2
// compressed encoding: 1, 2 or 4 bytes selected by the leading bits.
func (r *Reader) ReadCompressedInteger() (uint32, error) {
	if r.offset >= len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.offset]
	switch {
	case b&0x80 == 0:
		r.offset++
		return uint32(b), nil
	case b&0xC0 == 0x80:
		if r.Remaining() < 2 {
			return 0, ErrTruncated
		}
		v := uint32(b&0x3F)<<8 | uint32(r.data[r.offset+1])
		r.offset += 2
		return v, nil
	case b&0xE0 == 0xC0:
		if r.Remaining() < 4 {
			return 0, ErrTruncated
		}
		v := uint32(b&0x1F)<<24 |
			uint32(r.data[r.offset+1])<<16 |
			uint32(r.data[r.offset+2])<<8 |
			uint32(r.data[r.offset+3])
		r.offset += 4
		return v, nil
	}
	return 0, ErrInvalidCompressedInteger
}

// ReadSignatureTypeCode reads the element type code of the next type.
func (r *Reader) ReadSignatureTypeCode() (flags.ElementType, error) {
	v, err := r.ReadCompressedInteger()
	if err != nil {
		return 0, err
	}
	if v > 0xFF {
		return 0, ErrInvalidTypeCode
	}
	return flags.ElementType(v), nil
}

// ReadTypeHandle reads a TypeDefOrRefOrSpecEncoded coded index.
func (r *Reader) ReadTypeHandle() (TypeHandle, error) {
	v, err := r.ReadCompressedInteger()
	if err != nil {
		return TypeHandle{}, err
	}
	table := HandleTable(v & 0x3)
	if table > TableTypeSpec {
		return TypeHandle{}, ErrInvalidTypeHandle
	}
	return TypeHandle{Table: table, Row: v >> 2}, nil
}

// ReadSignatureHeader reads the leading byte of a signature.
func (r *Reader) ReadSignatureHeader() (SignatureHeader, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	h := SignatureHeader(b)
	if h&headerReserved != 0 {
		return 0, ErrInvalidHeader
	}
	return h, nil
}

// ParseHex decodes a textual blob such as "07 02 08 1c" or "0702081c".
func ParseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ',', '-', ':':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("could not decode signature blob: %w", err)
	}
	return data, nil
}
