package api

import "fmt"

// PathKind classifies a [Path]. The declaration order is also the display
// order used when sorting sibling paths.
type PathKind int

const (
	PathKindModule PathKind = iota
	PathKindExternCrate
	PathKindImport
	PathKindStruct
	PathKindStructField
	PathKindUnion
	PathKindEnum
	PathKindVariant
	PathKindFunction
	PathKindTypedef
	PathKindOpaqueTy
	PathKindConstant
	PathKindTrait
	PathKindTraitAlias
	PathKindMethod
	PathKindImpl
	PathKindStatic
	PathKindForeignType
	PathKindMacro
	PathKindProcAttribute
	PathKindProcDerive
	PathKindAssocConst
	PathKindAssocType
	PathKindPrimitive
	PathKindKeyword
)

var pathKindNames = [...]string{
	PathKindModule:        "module",
	PathKindExternCrate:   "extern_crate",
	PathKindImport:        "import",
	PathKindStruct:        "struct",
	PathKindStructField:   "struct_field",
	PathKindUnion:         "union",
	PathKindEnum:          "enum",
	PathKindVariant:       "variant",
	PathKindFunction:      "function",
	PathKindTypedef:       "typedef",
	PathKindOpaqueTy:      "opaque_ty",
	PathKindConstant:      "constant",
	PathKindTrait:         "trait",
	PathKindTraitAlias:    "trait_alias",
	PathKindMethod:        "method",
	PathKindImpl:          "impl",
	PathKindStatic:        "static",
	PathKindForeignType:   "foreign_type",
	PathKindMacro:         "macro",
	PathKindProcAttribute: "proc_attribute",
	PathKindProcDerive:    "proc_derive",
	PathKindAssocConst:    "assoc_const",
	PathKindAssocType:     "assoc_type",
	PathKindPrimitive:     "primitive",
	PathKindKeyword:       "keyword",
}

var pathKindByName = func() map[string]PathKind {
	m := make(map[string]PathKind, len(pathKindNames))
	for k, name := range pathKindNames {
		m[name] = PathKind(k)
	}
	return m
}()

// ParsePathKind maps a snake_case kind name to its PathKind.
func ParsePathKind(s string) (PathKind, error) {
	if k, ok := pathKindByName[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown path kind %q", s)
}

// String returns the snake_case name of the kind.
func (k PathKind) String() string {
	if k < 0 || int(k) >= len(pathKindNames) {
		return fmt.Sprintf("PathKind(%d)", int(k))
	}
	return pathKindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k PathKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(pathKindNames) {
		return nil, fmt.Errorf("invalid path kind %d", int(k))
	}
	return []byte(pathKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PathKind) UnmarshalText(data []byte) error {
	parsed, err := ParsePathKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
