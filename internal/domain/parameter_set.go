package domain

import (
	"fmt"
	"strconv"
)

type AutomationParameterSetID string

type PlatformParameterSetID string

// PlatformMarket is the only platform this client can publish to.
const PlatformMarket = "market"

// AutomationParameterSet is a server-side record describing an automation run.
// Read-only from this client's perspective.
type AutomationParameterSet struct {
	ID                     AutomationParameterSetID
	PlatformParameterSetID PlatformParameterSetID
	ProjectName            string
}

// PlatformParameterSet carries the platform-specific job parameters referenced
// by an automation parameter set.
type PlatformParameterSet struct {
	ID         PlatformParameterSetID
	Platform   string
	Parameters PlatformParameters
}

// PlatformParameters is the parameter bag of a platform parameter set. The
// numeric fields are stored server-side as strings and may be empty, meaning
// "not set".
type PlatformParameters struct {
	JobClassID           string
	NumJobAssignmentsMax string
	PriorityScore        string
}

// IntOrNone coerces a string-or-empty server value into an optional integer.
// An empty string maps to nil, not zero.
func IntOrNone(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("parse integer parameter %q: %w", value, err)
	}

	return &n, nil
}
