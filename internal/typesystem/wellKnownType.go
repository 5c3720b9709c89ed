package typesystem

import "fmt"

// WellKnownType names the primitive types every module can reference without
// a type handle.
type WellKnownType int

const (
	WellKnownVoid WellKnownType = iota
	WellKnownBoolean
	WellKnownChar
	WellKnownSByte
	WellKnownByte
	WellKnownInt16
	WellKnownUInt16
	WellKnownInt32
	WellKnownUInt32
	WellKnownInt64
	WellKnownUInt64
	WellKnownIntPtr
	WellKnownUIntPtr
	WellKnownSingle
	WellKnownDouble
	WellKnownString
	WellKnownObject

	wellKnownCount
)

var wellKnownNames = [wellKnownCount]string{
	WellKnownVoid:    "void",
	WellKnownBoolean: "bool",
	WellKnownChar:    "char",
	WellKnownSByte:   "int8",
	WellKnownByte:    "uint8",
	WellKnownInt16:   "int16",
	WellKnownUInt16:  "uint16",
	WellKnownInt32:   "int32",
	WellKnownUInt32:  "uint32",
	WellKnownInt64:   "int64",
	WellKnownUInt64:  "uint64",
	WellKnownIntPtr:  "native int",
	WellKnownUIntPtr: "native uint",
	WellKnownSingle:  "float32",
	WellKnownDouble:  "float64",
	WellKnownString:  "string",
	WellKnownObject:  "object",
}

func (w WellKnownType) String() string {
	if w >= 0 && w < wellKnownCount {
		return wellKnownNames[w]
	}
	return fmt.Sprintf("WellKnownType(%d)", int(w))
}
