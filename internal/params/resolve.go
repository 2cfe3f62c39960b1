// File: internal/params/resolve.go
// Brief: Resolves template parameters from defaults, injected values, and operator input.

// Package params turns a template's parameter schema into the concrete values
// submitted with a stack action.
package params

import (
	"context"
	"strings"

	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/example/cfdeploy/internal/template"
	"github.com/go-logr/logr"
)

// Reserved parameter names that are always injected, never prompted.
const (
	DeploymentBucketParam = "CGDeploymentBucket"
	DeploymentPathParam   = "CGDeploymentPath"
)

const (
	noDescription = "No description"
	unknownType   = "Unknown type"
)

// Value is one resolved parameter.
type Value struct {
	Key   string
	Value string
}

// Set is the resolved parameter list in template order.
type Set []Value

// Keys returns parameter names in order.
func (s Set) Keys() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v.Key)
	}
	return out
}

// Lookup returns the value resolved for key.
func (s Set) Lookup(key string) (string, bool) {
	for _, v := range s {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Map returns the set as a map.
func (s Set) Map() map[string]string {
	out := make(map[string]string, len(s))
	for _, v := range s {
		out[v.Key] = v.Value
	}
	return out
}

// Input carries the values injected into reserved parameters.
type Input struct {
	Project string
	Folder  string
	Bucket  string
}

// Source says where a parameter's value comes from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceInjected Source = "injected"
	SourceOverride Source = "override"
	SourcePrompt   Source = "prompt"
)

// Resolver produces a Set from a template document.
type Resolver struct {
	Prompter    Prompter
	UseDefaults bool
	// Overrides answer prompts without asking. They never add names the
	// template does not declare and never replace injected values.
	Overrides map[string]string
	Log       logr.Logger
}

// Classify reports how name would be resolved without prompting anyone.
func (r *Resolver) Classify(p template.Parameter) Source {
	switch {
	case r.UseDefaults && p.HasDefault:
		return SourceDefault
	case p.Name == DeploymentBucketParam || p.Name == DeploymentPathParam:
		return SourceInjected
	}
	if _, ok := r.Overrides[p.Name]; ok {
		return SourceOverride
	}
	return SourcePrompt
}

// Resolve walks the declared parameters in order. Defaulted parameters are
// omitted so the backend applies its own default.
func (r *Resolver) Resolve(ctx context.Context, doc *template.Document, in Input) (Set, error) {
	if doc == nil {
		return nil, deployerr.Errorf(deployerr.Schema, "no template to resolve parameters from")
	}
	set := make(Set, 0, len(doc.Parameters))
	for _, p := range doc.Parameters {
		source := r.Classify(p)
		switch source {
		case SourceDefault:
			r.Log.V(1).Info("leaving parameter to template default", "parameter", p.Name)
			continue
		case SourceInjected:
			set = append(set, Value{Key: p.Name, Value: injectedValue(p.Name, in)})
		case SourceOverride:
			set = append(set, Value{Key: p.Name, Value: r.Overrides[p.Name]})
		default:
			if r.Prompter == nil {
				return nil, deployerr.Errorf(deployerr.Input, "parameter %s needs a value but no prompt is available", p.Name)
			}
			answer, err := r.Prompter.Ask(ctx, Question{
				Name:        p.Name,
				Description: orDefault(p.Description, noDescription),
				Type:        orDefault(p.Type, unknownType),
			})
			if err != nil {
				return nil, deployerr.New(deployerr.Input, "read value for "+p.Name, err)
			}
			set = append(set, Value{Key: p.Name, Value: trimNewline(answer)})
		}
		r.Log.V(1).Info("resolved parameter", "parameter", p.Name, "source", string(source))
	}
	return set, nil
}

func injectedValue(name string, in Input) string {
	if name == DeploymentBucketParam {
		return in.Bucket
	}
	return config.DeploymentPath(in.Project, in.Folder)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// trimNewline removes exactly one trailing "\n". Anything before it,
// including a carriage return, is kept verbatim.
func trimNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
