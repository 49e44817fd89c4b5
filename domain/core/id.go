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
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
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

// Domain-specific ID types
type (
	TestCaseID   ID
	ConfigID     ID
	AnnotationID ID
)

// String conversions for domain IDs
func (id TestCaseID) String() string   { return ID(id).String() }
func (id ConfigID) String() string     { return ID(id).String() }
func (id AnnotationID) String() string { return ID(id).String() }

// ParseTestCaseID parses a string into TestCaseID
func ParseTestCaseID(s string) (TestCaseID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("test case ID cannot be empty")
	}
	return TestCaseID(s), nil
}

// ParseConfigID parses a string into ConfigID
func ParseConfigID(s string) (ConfigID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("config ID cannot be empty")
	}
	return ConfigID(s), nil
}
