package llm

import (
	"bytes"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// StructuralDefault builds the smallest value that still carries every
// required property of schema, plus an "error" marker. Strings become "",
// arrays [] and objects {}; any other type is nil.
func StructuralDefault(schema *jsonschema.Schema) map[string]any {
	out := make(map[string]any)
	if schema != nil {
		for _, key := range schema.Required {
			var typ string
			if schema.Properties != nil {
				if prop, ok := schema.Properties.Get(key); ok && prop != nil {
					typ = prop.Type
				}
			}

			switch typ {
			case "string":
				out[key] = ""
			case "array":
				out[key] = []any{}
			case "object":
				out[key] = map[string]any{}
			default:
				out[key] = nil
			}
		}
	}
	out["error"] = structuredErrorText
	return out
}

// renderJSON encodes v without HTML escaping so prompts keep the text as is.
func renderJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
