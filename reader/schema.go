package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a Parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"` // query type the column loads as
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// requiredColumns must be present in a flat posting export.
var requiredColumns = []string{"date", "account"}

// ExtractSchemaInfo lists the leaf columns of the first file matching
// pattern. Nested fields use dot notation (e.g. "meta.key").
func ExtractSchemaInfo(pattern string) ([]SchemaInfo, error) {
	paths, err := expand(pattern)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(paths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, field := range r.Schema().Fields() {
		infos = appendFieldInfo(infos, field, "", false)
	}
	return infos, nil
}

// CheckPostingSchema reports the first required column missing from infos.
func CheckPostingSchema(infos []SchemaInfo) error {
	have := make(map[string]bool, len(infos))
	for _, info := range infos {
		have[info.Name] = true
	}
	for _, name := range requiredColumns {
		if !have[name] {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// appendFieldInfo appends the leaves under field. Groups are not listed
// themselves; a repeated group makes all its leaves repeated.
func appendFieldInfo(infos []SchemaInfo, field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		for _, child := range children {
			infos = appendFieldInfo(infos, child, name, repeated)
		}
		return infos
	}

	info := SchemaInfo{
		Name:     name,
		Required: field.Required(),
		Optional: field.Optional(),
		Repeated: repeated,
	}
	if typ := field.Type(); typ != nil {
		info.PhysicalType = physicalType(typ.Kind())
		if lt := typ.LogicalType(); lt != nil {
			info.LogicalType = lt.String()
		}
	}
	info.Type = columnType(info)
	if repeated {
		info.Type = "list<" + info.Type + ">"
	}
	return append(infos, info)
}

func physicalType(kind parquet.Kind) string {
	switch kind {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// columnType maps a Parquet leaf to the query type its values load as.
func columnType(info SchemaInfo) string {
	switch {
	case strings.HasPrefix(info.LogicalType, "DATE"):
		return "date"
	case strings.HasPrefix(info.LogicalType, "DECIMAL"):
		return "decimal"
	case strings.HasPrefix(info.LogicalType, "STRING"), strings.HasPrefix(info.LogicalType, "UTF8"),
		strings.HasPrefix(info.LogicalType, "ENUM"), strings.HasPrefix(info.LogicalType, "JSON"):
		return "str"
	}
	switch info.PhysicalType {
	case "BOOLEAN":
		return "bool"
	case "INT32", "INT64":
		return "int"
	case "FLOAT", "DOUBLE":
		return "decimal"
	case "BYTE_ARRAY", "FIXED_LEN_BYTE_ARRAY":
		return "str"
	}
	return "any"
}
