package replica

import (
	"fmt"
	"io"

	"github.com/plus3/slots/idmap"
	"gopkg.in/yaml.v3"
)

// Kind is the type of a replicated event.
type Kind uint8

const (
	Spawn Kind = iota + 1
	Update
	Despawn
)

func (k Kind) String() string {
	switch k {
	case Spawn:
		return "spawn"
	case Update:
		return "update"
	case Despawn:
		return "despawn"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "spawn":
		*k = Spawn
	case "update":
		*k = Update
	case "despawn":
		*k = Despawn
	default:
		return fmt.Errorf("line %d: unknown event kind %q", node.Line, s)
	}
	return nil
}

// Event is one change published by an authority.
type Event[V any] struct {
	Kind   Kind         `yaml:"kind"`
	Handle idmap.Handle `yaml:"handle"`
	Value  V            `yaml:"value,omitempty"`
}

// Script is a named, ordered event sequence, used to record and replay
// sessions.
type Script[V any] struct {
	Name   string     `yaml:"name"`
	Events []Event[V] `yaml:"events"`
}

// LoadScript decodes a YAML script.
func LoadScript[V any](r io.Reader) (*Script[V], error) {
	var s Script[V]
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	return &s, nil
}

// Encode writes the script as YAML.
func (s *Script[V]) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return enc.Close()
}
