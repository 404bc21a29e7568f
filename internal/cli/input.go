package cli

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gzhole/opguard/internal/operation"
)

//go:embed operation.schema.json
var operationSchemaJSON string

const operationSchemaURL = "https://opguard.schemas.local/cli/operation.schema.json"

var (
	operationSchemaOnce sync.Once
	operationSchema     *jsonschema.Schema
	operationSchemaErr  error
)

func compiledOperationSchema() (*jsonschema.Schema, error) {
	operationSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(operationSchemaURL, strings.NewReader(operationSchemaJSON)); err != nil {
			operationSchemaErr = fmt.Errorf("operation schema load failed: %w", err)
			return
		}
		operationSchema, operationSchemaErr = c.Compile(operationSchemaURL)
	})
	return operationSchema, operationSchemaErr
}

// readOperationInput reads from file, or from stdin when file is "" or "-".
func readOperationInput(file string, stdin io.Reader) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

// decodeOperation validates raw JSON against the operation schema and
// decodes it.
func decodeOperation(data []byte) (operation.CandidateOperation, error) {
	var op operation.CandidateOperation

	schema, err := compiledOperationSchema()
	if err != nil {
		return op, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return op, fmt.Errorf("operation is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return op, fmt.Errorf("operation does not match the expected shape: %w", err)
	}

	// numbers stay json.Number so record ids keep every digit
	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&op); err != nil {
		return op, fmt.Errorf("decoding operation: %w", err)
	}
	return op, nil
}
