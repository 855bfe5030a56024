package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const customerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "id":            {"type": "string"},
    "name":          {"type": "string", "minLength": 1, "maxLength": 200},
    "email":         {"type": "string", "maxLength": 320},
    "phone":         {"type": "string", "maxLength": 40},
    "language":      {"type": "string", "enum": ["en", "bn", ""]},
    "subscription":  {"type": "string", "maxLength": 60},
    "devices":       {"type": "integer", "minimum": 0},
    "loyaltyPoints": {"type": "integer", "minimum": 0},
    "totalSpent":    {"type": "number", "minimum": 0},
    "vehicleInfo": {
      "type": ["object", "null"],
      "properties": {
        "plateNumber": {"type": "string", "maxLength": 40},
        "model":       {"type": "string", "maxLength": 100},
        "color":       {"type": "string", "maxLength": 40}
      }
    }
  }
}`

// Validator checks raw customer JSON against the profile schema before it is
// decoded. The HTTP boundary decodes profiles directly; the MCP and CLI
// surfaces receive profiles as free-form strings and go through here.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded customer profile schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(customerSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling customer schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Parse validates data and decodes it into a CustomerProfile. Empty input
// (or a JSON null) means "no profile" and yields nil without error.
func (v *Validator) Parse(data []byte) (*CustomerProfile, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	result, err := v.schema.Validate(gojsonschema.NewStringLoader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("validating customer data: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, re := range result.Errors() {
			problems = append(problems, "- "+re.String())
		}
		return nil, fmt.Errorf("customer data failed validation:\n%s", strings.Join(problems, "\n"))
	}

	var p CustomerProfile
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, fmt.Errorf("decoding customer data: %w", err)
	}
	return &p, nil
}
