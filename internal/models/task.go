package models

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// TaskSpec declares the success criteria and behavioral expectations for one
// browser-agent task.
type TaskSpec struct {
	ID               string      `yaml:"id" json:"id"`
	Intent           string      `yaml:"intent,omitempty" json:"intent,omitempty"`
	ExpectedURL      string      `yaml:"expected_url,omitempty" json:"expected_url,omitempty"`
	ExpectedSequence []string    `yaml:"expected_sequence,omitempty" json:"expected_sequence,omitempty"`
	OptimalSteps     int         `yaml:"optimal_steps,omitempty" json:"optimal_steps,omitempty"`
	Assertions       []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// taskSpecSchema is the JSON schema every task document must satisfy.
const taskSpecSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"intent": {"type": "string"},
		"expected_url": {"type": "string"},
		"expected_sequence": {"type": "array", "items": {"type": "string"}},
		"optimal_steps": {"type": "integer", "minimum": 1},
		"assertions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["kind", "description"],
				"properties": {
					"kind": {"enum": ["query_match", "text_judge", "query_judge"]},
					"description": {"type": "string", "minLength": 1},
					"query": {"type": "string"}
				}
			}
		}
	}
}`

// LoadTaskSpec loads a task spec from a YAML file and validates it against
// the task schema.
func LoadTaskSpec(path string) (*TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTaskSpec(data)
}

// ParseTaskSpec parses and validates a YAML task document.
func ParseTaskSpec(data []byte) (*TaskSpec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task spec: %w", err)
	}

	if err := validateTaskDocument(doc); err != nil {
		return nil, err
	}

	var spec TaskSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode task spec: %w", err)
	}
	return &spec, nil
}

// validateTaskDocument checks a decoded task document against taskSpecSchema.
func validateTaskDocument(doc any) error {
	// Roundtrip through JSON so the validator sees canonical JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("task spec is not JSON-representable: %w", err)
	}
	var canonical any
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return err
	}

	var schemaValue any
	if err := json.Unmarshal([]byte(taskSpecSchema), &schemaValue); err != nil {
		return fmt.Errorf("failed to parse task schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("task.json", schemaValue); err != nil {
		return fmt.Errorf("failed to add task schema resource: %w", err)
	}
	schema, err := compiler.Compile("task.json")
	if err != nil {
		return fmt.Errorf("failed to compile task schema: %w", err)
	}

	if err := schema.Validate(canonical); err != nil {
		return fmt.Errorf("invalid task spec: %w", err)
	}
	return nil
}
