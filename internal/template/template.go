// File: internal/template/template.go
// Brief: Reads the Parameters schema out of a stack template.

// Package template understands just enough of a stack template to resolve
// its input parameters. The rest of the document is opaque and is deployed
// verbatim.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Parameter is one declared entry of the template's Parameters section.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Default     any
	HasDefault  bool
}

// Document is a parsed template. Parameters keep document order.
type Document struct {
	Parameters []Parameter
	Raw        []byte
}

// Lookup returns the declared parameter with the given name.
func (d *Document) Lookup(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// IsTemplate reports whether name carries one of the template extensions.
func IsTemplate(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Parse reads a JSON or YAML template. JSON may carry comments and trailing
// commas; YAML may use short-form intrinsic tags such as !Ref.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, deployerr.Errorf(deployerr.Schema, "template is empty")
	}
	var (
		params []Parameter
		err    error
	)
	if trimmed[0] == '{' {
		params, err = parseJSON(jsonc.ToJSON(trimmed))
	} else {
		params, err = parseYAML(trimmed)
	}
	if err != nil {
		return nil, err
	}
	return &Document{Parameters: params, Raw: data}, nil
}

// parseJSON walks the token stream so Parameters keep document order. The
// rest of the document is only validated.
func parseJSON(src []byte) ([]Parameter, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		return nil, deployerr.New(deployerr.Schema, "parse template", err)
	}
	var (
		params []Parameter
		found  bool
	)
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, deployerr.New(deployerr.Schema, "parse template", err)
		}
		if key != "Parameters" || found {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, deployerr.New(deployerr.Schema, "parse template", err)
			}
			continue
		}
		found = true
		if params, err = parseJSONParameters(dec); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, deployerr.New(deployerr.Schema, "parse template", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, deployerr.Errorf(deployerr.Schema, "parse template: unexpected data after the top-level object (offset %d)", dec.InputOffset())
	}
	if !found {
		return nil, deployerr.Errorf(deployerr.Schema, "template has no Parameters section")
	}
	return params, nil
}

func parseJSONParameters(dec *json.Decoder) ([]Parameter, error) {
	offset := dec.InputOffset()
	tok, err := dec.Token()
	if err != nil {
		return nil, deployerr.New(deployerr.Schema, "parse template", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, deployerr.Errorf(deployerr.Schema, "template Parameters section is not an object (offset %d)", offset)
	}
	params := []Parameter{}
	seen := map[string]struct{}{}
	for dec.More() {
		name, err := objectKey(dec)
		if err != nil {
			return nil, deployerr.New(deployerr.Schema, "parse template", err)
		}
		if _, dup := seen[name]; dup {
			return nil, deployerr.Errorf(deployerr.Schema, "parameter %q declared twice (offset %d)", name, dec.InputOffset())
		}
		seen[name] = struct{}{}
		offset := dec.InputOffset()
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, deployerr.New(deployerr.Schema, "parse template", err)
		}
		param, err := jsonParameter(name, raw)
		if err != nil {
			return nil, deployerr.Errorf(deployerr.Schema, "parameter %q is not an object (offset %d)", name, offset)
		}
		params = append(params, param)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, deployerr.New(deployerr.Schema, "parse template", err)
	}
	return params, nil
}

func jsonParameter(name string, raw json.RawMessage) (Parameter, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' {
		return Parameter{}, fmt.Errorf("not an object")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Parameter{}, err
	}
	param := Parameter{Name: name}
	param.Type, _ = fields["Type"].(string)
	param.Description, _ = fields["Description"].(string)
	if def, ok := fields["Default"]; ok {
		param.HasDefault = true
		param.Default = def
	}
	return param, nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key at offset %d", dec.InputOffset())
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q at offset %d", want, dec.InputOffset())
	}
	return nil
}

func parseYAML(src []byte) ([]Parameter, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, deployerr.New(deployerr.Schema, "parse template", err)
	}
	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	if top.Kind != yaml.MappingNode {
		return nil, deployerr.Errorf(deployerr.Schema, "template root is not an object")
	}
	section := mappingValue(top, "Parameters")
	if section == nil {
		return nil, deployerr.Errorf(deployerr.Schema, "template has no Parameters section")
	}
	if section.Kind != yaml.MappingNode {
		return nil, deployerr.Errorf(deployerr.Schema, "template Parameters section is not an object (line %d)", section.Line)
	}
	params := []Parameter{}
	seen := make(map[string]struct{}, len(section.Content)/2)
	for i := 0; i+1 < len(section.Content); i += 2 {
		key, spec := section.Content[i], section.Content[i+1]
		name := key.Value
		if _, dup := seen[name]; dup {
			return nil, deployerr.Errorf(deployerr.Schema, "parameter %q declared twice (line %d)", name, key.Line)
		}
		seen[name] = struct{}{}
		param, err := parseParameter(name, spec)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	return params, nil
}

func parseParameter(name string, spec *yaml.Node) (Parameter, error) {
	if spec.Kind == yaml.AliasNode && spec.Alias != nil {
		spec = spec.Alias
	}
	if spec.Kind != yaml.MappingNode {
		return Parameter{}, deployerr.Errorf(deployerr.Schema, "parameter %q is not an object (line %d)", name, spec.Line)
	}
	param := Parameter{
		Name:        name,
		Type:        scalarString(mappingValue(spec, "Type")),
		Description: scalarString(mappingValue(spec, "Description")),
	}
	if def := mappingValue(spec, "Default"); def != nil {
		param.HasDefault = true
		param.Default = decodeValue(def)
	}
	return param, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func scalarString(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag != "!!str" {
		return ""
	}
	return node.Value
}

func decodeValue(node *yaml.Node) any {
	var v any
	if err := node.Decode(&v); err != nil {
		return node.Value
	}
	return v
}

// FormatDefault renders a default value for display.
func FormatDefault(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatDefault(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
