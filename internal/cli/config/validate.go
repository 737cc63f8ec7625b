package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relq/pkg/adapter"
)

// Validate checks that the target names a registered adapter type.
// The adapter registry is the single source of truth for what is
// available.
func (t *Target) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.List(),
		}
	}

	return nil
}
