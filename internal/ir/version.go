package ir

import (
	"fmt"
	"strings"
)

// SpecVersion is the document format version this IR decodes. Documents
// declaring a different major version are rejected at decode time.
const SpecVersion = "1.0"

// compatibleVersion rejects documents declaring an incompatible major
// format version. An absent version is accepted.
func (m Meta) compatibleVersion() error {
	if m.Version == "" {
		return nil
	}
	major, _, _ := strings.Cut(m.Version, ".")
	wantMajor, _, _ := strings.Cut(SpecVersion, ".")
	if major != wantMajor {
		return fmt.Errorf("unsupported spec version %q (supported: %s.x)", m.Version, wantMajor)
	}
	return nil
}

// Scalar type names accepted in field declarations.
const (
	TypeString    = "string"
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeBool      = "bool"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeUUID      = "uuid"
	TypeJSON      = "json"
)

// ScalarTypes is the set of primitive type names a field may declare.
var ScalarTypes = map[string]bool{
	TypeString:    true,
	TypeInt:       true,
	TypeFloat:     true,
	TypeBool:      true,
	TypeDate:      true,
	TypeTimestamp: true,
	TypeUUID:      true,
	TypeJSON:      true,
}
