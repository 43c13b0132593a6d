// Package template models the subset of the CloudFormation template format
// that the stack synthesizer emits, and renders it as JSON or YAML.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the only template format version CloudFormation accepts.
const FormatVersion = "2010-09-09"

// Format selects the serialisation used by Marshal.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Template is a CloudFormation template document.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
	Description              string               `json:"Description,omitempty"`
	Parameters               map[string]Parameter `json:"Parameters,omitempty"`
	Resources                map[string]Resource  `json:"Resources"`
	Outputs                  map[string]Output    `json:"Outputs,omitempty"`
}

// Parameter is a deployment-time input. Default is a pointer so that an
// explicit empty-string default is still emitted.
type Parameter struct {
	Type        string  `json:"Type"`
	Description string  `json:"Description,omitempty"`
	Default     *string `json:"Default,omitempty"`
}

// Resource is a single logical resource declaration.
type Resource struct {
	Type       string         `json:"Type"`
	DependsOn  []string       `json:"DependsOn,omitempty"`
	Properties map[string]any `json:"Properties,omitempty"`
}

// Output is a stack output value.
type Output struct {
	Description string `json:"Description,omitempty"`
	Value       any    `json:"Value"`
}

// New returns an empty template with the format version set.
func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              description,
		Parameters:               make(map[string]Parameter),
		Resources:                make(map[string]Resource),
		Outputs:                  make(map[string]Output),
	}
}

// StringParameter returns a String parameter with the given default.
func StringParameter(description, def string) Parameter {
	return Parameter{Type: "String", Description: description, Default: &def}
}

// Ref returns the Ref intrinsic for a parameter or resource logical ID.
func Ref(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

// GetAtt returns the Fn::GetAtt intrinsic for a resource attribute.
func GetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{logicalID, attribute}}
}

// Marshal renders t in the requested format. Output is deterministic:
// map keys are always emitted in sorted order.
func (t *Template) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal template json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		doc, err := t.document()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("marshal template yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal template yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported template format %q; valid values: json, yaml", format)
	}
}

// ParameterValues merges overrides with the declared parameter defaults and
// returns a value for every parameter. Values are passed through verbatim.
// Unknown override names and parameters with neither a default nor an
// override are reported together.
func (t *Template) ParameterValues(overrides map[string]string) (map[string]string, error) {
	var problems []string
	for name := range overrides {
		if _, ok := t.Parameters[name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	values := make(map[string]string, len(t.Parameters))
	for name, p := range t.Parameters {
		if v, ok := overrides[name]; ok {
			values[name] = v
			continue
		}
		if p.Default == nil {
			problems = append(problems, fmt.Sprintf("parameter %q has no default and no value", name))
			continue
		}
		values[name] = *p.Default
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("parameters: %s", strings.Join(problems, "; "))
	}
	return values, nil
}

// Resolve returns the template as a generic document in which every Ref to
// a parameter is replaced by its value. Refs to resources and pseudo
// parameters are left in place.
func (t *Template) Resolve(values map[string]string) (map[string]any, error) {
	doc, err := t.document()
	if err != nil {
		return nil, err
	}
	resolved, err := t.resolveValue(doc, values)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// Validate checks that every Ref, Fn::GetAtt and DependsOn names a declared
// parameter or resource. All problems are returned.
func (t *Template) Validate() []error {
	var errs []error
	if t.AWSTemplateFormatVersion != FormatVersion {
		errs = append(errs, fmt.Errorf("AWSTemplateFormatVersion: got %q; want %q", t.AWSTemplateFormatVersion, FormatVersion))
	}
	if len(t.Resources) == 0 {
		errs = append(errs, fmt.Errorf("Resources: at least one resource is required"))
	}

	for _, id := range sortedKeys(t.Resources) {
		r := t.Resources[id]
		if r.Type == "" {
			errs = append(errs, fmt.Errorf("Resources.%s: missing Type", id))
		}
		for _, dep := range r.DependsOn {
			if _, ok := t.Resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("Resources.%s.DependsOn: unknown resource %q", id, dep))
			}
		}
		errs = append(errs, t.checkReferences("Resources."+id, r.Properties)...)
	}
	for _, id := range sortedKeys(t.Outputs) {
		errs = append(errs, t.checkReferences("Outputs."+id, t.Outputs[id].Value)...)
	}
	return errs
}

// document converts t into plain maps and slices via a JSON round trip so
// that typed property values are walked uniformly.
func (t *Template) document() (map[string]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return doc, nil
}

func (t *Template) resolveValue(v any, values map[string]string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["Ref"].(string); ok && len(val) == 1 {
			if _, isParam := t.Parameters[ref]; isParam {
				s, ok := values[ref]
				if !ok {
					return nil, fmt.Errorf("no value for parameter %q", ref)
				}
				return s, nil
			}
			return val, nil
		}
		out := make(map[string]any, len(val))
		for k, child := range val {
			r, err := t.resolveValue(child, values)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			r, err := t.resolveValue(child, values)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func (t *Template) checkReferences(path string, v any) []error {
	data, err := json.Marshal(v)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", path, err)}
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return []error{fmt.Errorf("%s: %w", path, err)}
	}

	var errs []error
	var walk func(p string, node any)
	walk = func(p string, node any) {
		switch n := node.(type) {
		case map[string]any:
			if ref, ok := n["Ref"].(string); ok && len(n) == 1 {
				if !t.declared(ref) && !strings.HasPrefix(ref, "AWS::") {
					errs = append(errs, fmt.Errorf("%s: Ref to undeclared %q", p, ref))
				}
				return
			}
			if att, ok := n["Fn::GetAtt"].([]any); ok && len(n) == 1 {
				if len(att) != 2 {
					errs = append(errs, fmt.Errorf("%s: Fn::GetAtt needs [logicalID, attribute]", p))
					return
				}
				id, _ := att[0].(string)
				if _, ok := t.Resources[id]; !ok {
					errs = append(errs, fmt.Errorf("%s: Fn::GetAtt on undeclared resource %q", p, id))
				}
				return
			}
			for _, k := range sortedKeys(n) {
				walk(p+"."+k, n[k])
			}
		case []any:
			for i, child := range n {
				walk(fmt.Sprintf("%s[%d]", p, i), child)
			}
		}
	}
	walk(path, generic)
	return errs
}

func (t *Template) declared(id string) bool {
	if _, ok := t.Parameters[id]; ok {
		return true
	}
	_, ok := t.Resources[id]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
