package signature

import (
	"fmt"
	"strings"
)

// Kind categorizes a signature decoding failure.
type Kind string

const (
	// KindMalformed means the bytes do not follow the signature grammar.
	KindMalformed Kind = "malformed_signature"
	// KindUnsupported means the bytes are well-formed but name a construct
	// this target does not represent, such as TypedReference.
	KindUnsupported Kind = "unsupported_construct"
	// KindTooDeep means nesting exceeded the parser's depth limit.
	KindTooDeep Kind = "nesting_too_deep"
)

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrMalformed   = &Error{Kind: KindMalformed}
	ErrUnsupported = &Error{Kind: KindUnsupported}
	ErrTooDeep     = &Error{Kind: KindTooDeep}
)

// Error is returned by every Parser operation.
type Error struct {
	Kind   Kind
	Offset int
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))
	fmt.Fprintf(&b, " at offset %d", e.Offset)

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func (p *Parser) malformed(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:   KindMalformed,
		Offset: p.reader.Offset(),
		Detail: fmt.Sprintf(format, args...),
		Cause:  cause,
	}
}
