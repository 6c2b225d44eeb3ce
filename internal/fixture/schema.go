// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package fixture

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the fixture document schema.
const SchemaID = "https://forgesim.dev/schemas/fixture.schema.json"

// schemaCache holds the compiled schema to avoid recompilation.
var schemaCache *jschema.Schema

// GenerateSchema renders the JSON Schema for fixture documents.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Document{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "ForgeSim World Fixture"
	schema.Description = "Schema for fixture YAML files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("FIXTURE_SCHEMA_MARSHAL").
			Wrapf(err, "marshal fixture schema")
	}
	return data, nil
}

// ValidateSchema checks YAML fixture data against the generated JSON
// Schema without building a Document.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code("FIXTURE_EMPTY_DOCUMENT").
			Errorf("fixture data is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code("FIXTURE_INVALID_YAML").
			Wrapf(err, "invalid fixture YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(jsonTypes(yamlData)); err != nil {
		return oops.Code("FIXTURE_SCHEMA_VIOLATION").
			Wrapf(err, "fixture does not match schema")
	}
	return nil
}

// compiledSchema returns the cached compiled schema or compiles it.
func compiledSchema() (*jschema.Schema, error) {
	if schemaCache != nil {
		return schemaCache, nil
	}

	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(raw, &schemaData); err != nil {
		return nil, oops.Code("FIXTURE_SCHEMA_COMPILE").
			Wrapf(err, "parse fixture schema JSON")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("fixture.schema.json", schemaData); err != nil {
		return nil, oops.Code("FIXTURE_SCHEMA_COMPILE").
			Wrapf(err, "add fixture schema resource")
	}
	sch, err := c.Compile("fixture.schema.json")
	if err != nil {
		return nil, oops.Code("FIXTURE_SCHEMA_COMPILE").
			Wrapf(err, "compile fixture schema")
	}

	schemaCache = sch
	return sch, nil
}

// ResetSchemaCache clears the cached schema. Used for testing.
func ResetSchemaCache() {
	schemaCache = nil
}

// jsonTypes converts YAML-parsed data to JSON-compatible types.
// yaml.Unmarshal already produces map[string]any for string-keyed
// maps; nested structures are walked recursively and anything else
// goes through a JSON round-trip.
func jsonTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = jsonTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = jsonTypes(v)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}
