package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

const (
	FieldString = "string"
	FieldNumber = "number"
)

// Field is one key the model is asked to return.
type Field struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Example     string `yaml:"example"`
	Description string `yaml:"description"`
}

// Template is a named instruction prompt plus the payload shape it asks for.
// The user text is a text/template; {{ .Example }} expands to a JSON example
// built from Fields.
type Template struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	System      string   `yaml:"system"`
	User        string   `yaml:"user"`
	Fields      []Field  `yaml:"fields"`
	Required    []string `yaml:"required"`

	userTpl *template.Template
}

// File is the on-disk catalog layout.
type File struct {
	Default   string     `yaml:"default"`
	Templates []Template `yaml:"templates"`
}

// Catalog is an immutable, validated set of templates.
type Catalog struct {
	def       string
	templates map[string]*Template
}

// Source hands out the current catalog; hot-reloading loaders implement it too.
type Source interface {
	Catalog() *Catalog
}

type staticSource struct{ c *Catalog }

func (s staticSource) Catalog() *Catalog { return s.c }

// Static wraps a fixed catalog as a Source.
func Static(c *Catalog) Source { return staticSource{c: c} }

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	return Parse(bytes.NewReader(builtinCatalog))
}

// Parse decodes a YAML catalog, rejecting unknown keys.
func Parse(r io.Reader) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse prompt catalog failed: %w", err)
	}
	return New(f)
}

func New(f File) (*Catalog, error) {
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("prompt catalog has no templates")
	}
	c := &Catalog{templates: make(map[string]*Template, len(f.Templates))}
	for i := range f.Templates {
		t := f.Templates[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("prompt template #%d has no name", i+1)
		}
		if _, dup := c.templates[t.Name]; dup {
			return nil, fmt.Errorf("duplicate prompt template %q", t.Name)
		}
		if err := t.compile(); err != nil {
			return nil, fmt.Errorf("prompt template %q: %w", t.Name, err)
		}
		c.templates[t.Name] = &t
	}
	c.def = strings.TrimSpace(f.Default)
	if c.def == "" {
		c.def = f.Templates[0].Name
	}
	if _, ok := c.templates[c.def]; !ok {
		return nil, fmt.Errorf("default prompt template %q not defined", c.def)
	}
	return c, nil
}

func (t *Template) compile() error {
	if strings.TrimSpace(t.User) == "" {
		return fmt.Errorf("user prompt is empty")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	seen := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return fmt.Errorf("field #%d has no name", i+1)
		}
		f.Type = strings.ToLower(strings.TrimSpace(f.Type))
		if f.Type == "" {
			f.Type = FieldString
		}
		if f.Type != FieldString && f.Type != FieldNumber {
			return fmt.Errorf("field %s: unsupported type %q", f.Name, f.Type)
		}
		seen[f.Name] = true
	}
	for _, r := range t.Required {
		if !seen[r] {
			return fmt.Errorf("required field %q is not declared", r)
		}
	}
	tpl, err := template.New(t.Name).Option("missingkey=error").Parse(t.User)
	if err != nil {
		return err
	}
	t.userTpl = tpl
	return nil
}

// Default returns the template used when none is requested.
func (c *Catalog) Default() *Template {
	return c.templates[c.def]
}

// Get looks a template up by name; an empty name yields the default.
func (c *Catalog) Get(name string) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c.Default(), nil
	}
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template %q", name)
	}
	return t, nil
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.templates))
	for name := range c.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Rendered is a ready-to-send prompt pair.
type Rendered struct {
	System string
	User   string
}

func (t *Template) Render() (Rendered, error) {
	var b strings.Builder
	data := struct {
		Example string
		Fields  []Field
	}{Example: t.Example(), Fields: t.Fields}
	if err := t.userTpl.Execute(&b, data); err != nil {
		return Rendered{}, fmt.Errorf("render prompt %s: %w", t.Name, err)
	}
	return Rendered{System: strings.TrimSpace(t.System), User: strings.TrimSpace(b.String())}, nil
}

// Example renders an indented JSON object with the fields in declaration order.
func (t *Template) Example() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range t.Fields {
		key, _ := json.Marshal(f.Name)
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(": ")
		b.WriteString(exampleValue(f))
		if i < len(t.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func exampleValue(f Field) string {
	if f.Type == FieldNumber {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f.Example), 64); err == nil {
			return strings.TrimSpace(f.Example)
		}
		return "0"
	}
	v, _ := json.Marshal(f.Example)
	return string(v)
}

// FieldNames lists the declared keys in order.
func (t *Template) FieldNames() []string {
	out := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Schema builds a draft-07 JSON schema for the payload. Additional keys are
// allowed.
func (t *Template) Schema() map[string]any {
	props := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		props[f.Name] = map[string]any{"type": f.Type}
	}
	schema := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
	if len(t.Required) > 0 {
		req := make([]any, 0, len(t.Required))
		for _, r := range t.Required {
			req = append(req, r)
		}
		schema["required"] = req
	}
	return schema
}
