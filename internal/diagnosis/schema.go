package diagnosis

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"diagnoseme/internal/prompt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaChecker validates payloads against the shape a prompt template asks
// for. Results are advisory and never change what the client receives.
type SchemaChecker struct {
	mu sync.Mutex
	// compiled holds one entry per template name; a changed schema replaces it.
	compiled map[string]compiledSchema
}

type compiledSchema struct {
	sum    [sha256.Size]byte
	schema *jsonschema.Schema
}

func NewSchemaChecker() *SchemaChecker {
	return &SchemaChecker{compiled: make(map[string]compiledSchema)}
}

// Check returns human readable violations, or nil when the payload conforms.
func (c *SchemaChecker) Check(tpl *prompt.Template, payload []byte) ([]string, error) {
	schema, err := c.schemaFor(tpl)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	issues := leafMessages(ve, nil)
	sort.Strings(issues)
	return issues, nil
}

func (c *SchemaChecker) schemaFor(tpl *prompt.Template) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(tpl.Schema())
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.compiled[tpl.Name]; ok && cached.sum == sum {
		return cached.schema, nil
	}
	url := fmt.Sprintf("prompt_%s.json", tpl.Name)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", tpl.Name, err)
	}
	c.compiled[tpl.Name] = compiledSchema{sum: sum, schema: s}
	return s, nil
}

func leafMessages(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, fmt.Sprintf("%s: %s", loc, ve.Message))
	}
	for _, cause := range ve.Causes {
		out = leafMessages(cause, out)
	}
	return out
}
