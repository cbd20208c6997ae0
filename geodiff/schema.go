package geodiff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const jsonSchemaDraft = "http://json-schema.org/draft-07/schema#"

func primitiveSchema() map[string]interface{} {
	return map[string]interface{}{
		"anyOf": []interface{}{
			map[string]interface{}{"type": "integer"},
			map[string]interface{}{"type": "number"},
			map[string]interface{}{"type": "string"},
			map[string]interface{}{"type": "boolean"},
			map[string]interface{}{"type": "null"},
		},
		"default": nil,
	}
}

func changeSchema() map[string]interface{} {
	return map[string]interface{}{
		"title": "Change",
		"type":  "object",
		"properties": map[string]interface{}{
			"column": map[string]interface{}{"type": "integer", "minimum": 0},
			"old":    primitiveSchema(),
			"new":    primitiveSchema(),
		},
		"required": []string{"column"},
	}
}

func entrySchema(typ map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"title": "GeodiffEntry",
		"type":  "object",
		"properties": map[string]interface{}{
			"table": map[string]interface{}{"type": "string", "minLength": 1},
			"type":  typ,
			"changes": map[string]interface{}{
				"type":  "array",
				"items": changeSchema(),
			},
		},
		"required": []string{"table", "type", "changes"},
	}
}

// Schema returns the JSON Schema of a whole geodiff report.
func Schema() map[string]interface{} {
	kinds := make([]string, len(ActionKinds))
	for i, k := range []ActionKind{Insert, Update, Delete} {
		kinds[i] = k.String()
	}
	return map[string]interface{}{
		"$schema": jsonSchemaDraft,
		"title":   "GeodiffFile",
		"type":    "object",
		"properties": map[string]interface{}{
			"geodiff": map[string]interface{}{
				"type":  "array",
				"items": entrySchema(map[string]interface{}{"type": "string", "enum": kinds}),
			},
		},
		"required": []string{"geodiff"},
	}
}

// EntrySchema returns the JSON Schema of a single entry whose type is pinned
// to kind.
func EntrySchema(kind ActionKind) (map[string]interface{}, error) {
	switch kind {
	case Insert, Update, Delete:
	default:
		return nil, errors.AssertionFailedf("no schema for %s", kind)
	}
	ret := entrySchema(map[string]interface{}{"type": "string", "const": kind.String()})
	ret["$schema"] = jsonSchemaDraft
	return ret, nil
}

// WriteSchemas writes the report schema and one schema per entry kind into
// dir, returning the paths written.
func WriteSchemas(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "error creating schema directory %s", dir)
	}
	var written []string
	write := func(name string, schema map[string]interface{}) error {
		b, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return errors.Wrapf(err, "error writing %s", p)
		}
		written = append(written, p)
		return nil
	}
	if err := write("geodiff_file_schema.json", Schema()); err != nil {
		return written, err
	}
	for _, kind := range ActionKinds {
		s, err := EntrySchema(kind)
		if err != nil {
			return written, err
		}
		if err := write(fmt.Sprintf("geodiff_entry_%s_schema.json", kind), s); err != nil {
			return written, err
		}
	}
	return written, nil
}
