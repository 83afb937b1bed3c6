package credit

import (
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// requestSchema checks that every key is present and carries the right JSON
// kind. Numeric columns accept strings too, since form posts send them that
// way; castNumber does the parsing.
type requestSchema struct {
	schema *gojsonschema.Schema
}

func propertySchema(f Field) map[string]interface{} {
	if f.Kind == Numeric {
		return map[string]interface{}{"type": []string{"number", "string"}}
	}
	return map[string]interface{}{"type": "string"}
}

func newRequestSchema() (*requestSchema, error) {
	properties := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		properties[f.Key] = propertySchema(f)
	}
	doc := map[string]interface{}{
		"type":       "object",
		"required":   Keys(),
		"properties": properties,
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &requestSchema{schema: schema}, nil
}

// Check reports every absent or null key as one MissingField error. When all
// keys are present, the first value of the wrong kind in column order is a
// TypeCast error.
func (s *requestSchema) Check(record map[string]interface{}) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return NewMalformedRequestError(err)
	}
	if result.Valid() {
		return nil
	}

	missing := make(map[string]bool)
	wrongKind := make(map[string]bool)
	for _, re := range result.Errors() {
		switch re.Type() {
		case "required":
			if property, ok := re.Details()["property"].(string); ok {
				missing[property] = true
			}
		case "invalid_type":
			if re.Value() == nil {
				missing[re.Field()] = true
			} else {
				wrongKind[re.Field()] = true
			}
		}
	}

	var absent []string
	for _, key := range Keys() {
		if missing[key] {
			absent = append(absent, key)
		}
	}
	if len(absent) > 0 {
		return NewMissingFieldError(absent...)
	}
	for _, f := range fields {
		if wrongKind[f.Key] {
			return NewTypeCastError(f.Key, record[f.Key], f.Type)
		}
	}
	return NewMalformedRequestError(errors.New(result.Errors()[0].String()))
}
