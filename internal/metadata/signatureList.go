package metadata

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ecmasig/internal/blob"
)

// EntryKind names how a signature list entry is decoded.
type EntryKind string

const (
	EntryType       EntryKind = "type"
	EntryTypeSpec   EntryKind = "typespec"
	EntryMethod     EntryKind = "method"
	EntryField      EntryKind = "field"
	EntryProperty   EntryKind = "property"
	EntryLocals     EntryKind = "locals"
	EntryMethodSpec EntryKind = "methodspec"
	// EntryMember is a MemberRef signature, either a field or a method.
	EntryMember EntryKind = "member"
)

var entryKinds = map[EntryKind]bool{
	EntryType:       true,
	EntryTypeSpec:   true,
	EntryMethod:     true,
	EntryField:      true,
	EntryProperty:   true,
	EntryLocals:     true,
	EntryMethodSpec: true,
	EntryMember:     true,
}

// Entry is one line of a signature list: `<kind> <name> <hex blob>`.
// For typespec entries the name is the TypeSpec row number.
type Entry struct {
	Line int
	Kind EntryKind
	Name string
	Blob []byte
}

// Row returns the TypeSpec row of a typespec entry.
func (entry Entry) Row() (uint32, error) {
	row, err := strconv.ParseUint(entry.Name, 0, 32)
	if err != nil || row == 0 {
		return 0, fmt.Errorf("line %d: invalid type specification row '%s'", entry.Line, entry.Name)
	}
	return uint32(row), nil
}

// Reads a signature list. Blank lines and lines starting with '#' are skipped.
func ReadSignatureList(r io.Reader) ([]Entry, error) {
	entries := make([]Entry, 0)
	fileScanner := bufio.NewScanner(r)

	for line := 1; fileScanner.Scan(); line++ {
		text := strings.TrimSpace(fileScanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected '<kind> <name> <blob>'", line)
		}

		kind := EntryKind(strings.ToLower(fields[0]))
		if !entryKinds[kind] {
			return nil, fmt.Errorf("line %d: unknown signature kind '%s'", line, fields[0])
		}

		signatureBlob, err := blob.ParseHex(strings.Join(fields[2:], ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		entries = append(entries, Entry{Line: line, Kind: kind, Name: fields[1], Blob: signatureBlob})
	}

	if err := fileScanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
