package rules

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed pattern.schema.json
var patternSchemaJSON string

const patternSchemaURL = "https://opguard.schemas.local/rules/pattern.schema.json"

var (
	patternSchemaOnce sync.Once
	patternSchema     *jsonschema.Schema
	patternSchemaErr  error
)

func compiledPatternSchema() (*jsonschema.Schema, error) {
	patternSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(patternSchemaURL, strings.NewReader(patternSchemaJSON)); err != nil {
			patternSchemaErr = fmt.Errorf("pattern schema load failed: %w", err)
			return
		}
		patternSchema, patternSchemaErr = c.Compile(patternSchemaURL)
	})
	return patternSchema, patternSchemaErr
}

// validatePatternDocument checks a raw pattern definition against the
// embedded JSON Schema. YAML is re-encoded as JSON first so the validator
// sees JSON-native types.
func validatePatternDocument(data []byte) error {
	schema, err := compiledPatternSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("pattern is not representable as JSON: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(raw, &jsonDoc); err != nil {
		return err
	}
	return schema.Validate(jsonDoc)
}
