package engine

import (
	"errors"
	"fmt"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/config"
)

// Result is the validation outcome of one beacon definition.
type Result struct {
	// Name is the instance name.
	Name string
	// Kind is the resolved beacon kind.
	Kind string
	// Valid reports whether the configuration was accepted.
	Valid bool
	// Message is the validator diagnostic.
	Message string
	// Disabled reports a definition that would not be started.
	Disabled bool
	// Unavailable explains why the kind cannot run on this host, nil when it can.
	Unavailable error
}

// String renders the result as one line.
func (r *Result) String() string {
	verdict := "ok"
	if !r.Valid {
		verdict = "invalid"
	}

	line := fmt.Sprintf("%s (%s): %s: %s", r.Name, r.Kind, verdict, r.Message)

	if r.Disabled {
		line += " [disabled]"
	}

	if r.Unavailable != nil {
		line += fmt.Sprintf(" [unavailable: %v]", r.Unavailable)
	}

	return line
}

// Check validates every definition without starting anything.
// Availability is reported separately and does not make a definition invalid.
func Check(registry *beacon.Registry, caps beacon.Capabilities, definitions []config.Definition) []Result {
	results := make([]Result, 0, len(definitions))

	for _, definition := range definitions {
		result := Result{
			Name:     definition.Name,
			Kind:     definition.Kind,
			Disabled: definition.Disabled,
		}

		switch {
		case errors.Is(definition.Err, beacon.ErrNotList), errors.Is(definition.Err, beacon.ErrNotSingleKeyMapping):
			result.Message = beacon.ShapeMessage(definition.Kind)
		case definition.Err != nil:
			result.Message = definition.Err.Error()
		default:
			result.Valid, result.Message = registry.Validate(definition.Kind, definition.Config)
		}

		if kind, ok := registry.Lookup(definition.Kind); ok && kind.Available != nil && caps != nil {
			result.Unavailable = kind.Available(caps)
		}

		results = append(results, result)
	}

	return results
}
