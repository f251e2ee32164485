package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/setcells.schema.json
var setCellsSchemaJSON string

var setCellsSchema = jsonschema.MustCompileString("setcells.schema.json", setCellsSchemaJSON)

// SetCellsSchema returns the raw JSON Schema for the /setcells body.
func SetCellsSchema() string { return setCellsSchemaJSON }

// ValidateSetCells checks a raw /setcells body against the schema.
func ValidateSetCells(body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := setCellsSchema.Validate(v); err != nil {
		return err
	}
	return nil
}

// DecodeSetCells validates and decodes a /setcells body.
func DecodeSetCells(body []byte) (SetCellsRequest, error) {
	var req SetCellsRequest
	if err := ValidateSetCells(body); err != nil {
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}
