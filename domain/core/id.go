package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific key types
type (
	// RunID identifies one analysis invocation.
	RunID ID
	// GeneKey is a gene/protein row identifier in the intensity table.
	GeneKey string
	// Condition is an experimental treatment/group label, used as a
	// column-name prefix when selecting samples.
	Condition string
	// SampleName is a full sample column name in the wide intensity table.
	SampleName string
)

func (id RunID) String() string     { return ID(id).String() }
func (g GeneKey) String() string    { return string(g) }
func (c Condition) String() string  { return string(c) }
func (s SampleName) String() string { return string(s) }

// ParseGeneKey parses a string into a GeneKey
func ParseGeneKey(s string) (GeneKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("gene key cannot be empty")
	}
	return GeneKey(s), nil
}

// ParseCondition parses a string into a Condition
func ParseCondition(s string) (Condition, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("condition cannot be empty")
	}
	return Condition(s), nil
}
