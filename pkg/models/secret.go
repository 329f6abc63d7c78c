package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reference to a secret held by a provider
type SecretRef struct {
	Provider string
	ID       string
}

// Named secret to resolve, Value is set once resolved
type Secret struct {
	Name  string
	Ref   SecretRef
	Value string
}

func (r SecretRef) IsZero() bool {
	return r.Provider == "" && r.ID == ""
}

// Accept a literal scalar or a single-entry mapping of provider to id:
//
//	password: hunter2
//	password: {env: RAAS_PASSWORD}
func (r *SecretRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = SecretRef{Provider: "string", ID: node.Value}
		return nil
	case yaml.MappingNode:
		var o map[string]string
		if err := node.Decode(&o); err != nil {
			return err
		}
		if len(o) != 1 {
			return fmt.Errorf("exactly one secret provider must be specified, got %d", len(o))
		}
		for provider, id := range o {
			*r = SecretRef{Provider: provider, ID: id}
		}
		return nil
	}
	return fmt.Errorf("invalid node kind: %v", node.Kind)
}

func (r SecretRef) String() string {
	if r.Provider == "string" {
		return "string:<redacted>"
	}
	return r.Provider + ":" + r.ID
}

func (s Secret) Resolve(value string) Secret {
	s.Value = value
	return s
}
