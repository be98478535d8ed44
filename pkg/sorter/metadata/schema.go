package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema is a defense-in-depth check run by the `validate` CLI
// command, independent of the strict per-field key checking Load performs
// while decoding into typed values (see yaml.go's checkUnknownKeys). It
// catches the same class of mistake — unrecognised keys, wrong value
// shapes — against a single declarative schema, so a malformed masterlist
// can be diagnosed without constructing a Go value at all.
const documentSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "bash_tags": {"type": "array", "items": {"type": "string"}},
    "globals": {"type": "array", "items": {"type": "object"}},
    "groups": {"type": "array", "items": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "after": {"type": "array", "items": {"type": "string"}}
      }
    }},
    "plugins": {"type": "array", "items": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "enabled": {"type": "boolean"},
        "group": {"type": "string"},
        "priority": {"type": "integer"},
        "after": {"type": "array"},
        "req": {"type": "array"},
        "inc": {"type": "array"},
        "msg": {"type": "array"},
        "tag": {"type": "array"},
        "dirty": {"type": "array"},
        "clean": {"type": "array"},
        "url": {"type": "array"}
      }
    }}
  }
}`

// ValidationError describes one schema violation found by Validate.
type ValidationError struct {
	Path        string
	Description string
}

func (v ValidationError) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Description)
}

// Validate parses raw YAML bytes into a generic document and checks it
// against documentSchema, returning every violation found (nil if the
// document conforms).
func Validate(yamlBytes []byte) ([]ValidationError, error) {
	var generic interface{}
	if err := yaml.Unmarshal(yamlBytes, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentFormat, err)
	}
	generic = normaliseForJSON(generic)

	jsonBytes, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentFormat, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	docLoader := gojsonschema.NewBytesLoader(jsonBytes)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("%w: schema check failed: %v", ErrDocumentFormat, err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, ValidationError{Path: e.Field(), Description: e.Description()})
	}
	return violations, nil
}

// normaliseForJSON converts the map[interface{}]interface{} values
// gopkg.in/yaml.v3 can still produce for untyped interface{} targets into
// map[string]interface{} so encoding/json can marshal them.
func normaliseForJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normaliseForJSON(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normaliseForJSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normaliseForJSON(item)
		}
		return out
	default:
		return val
	}
}
