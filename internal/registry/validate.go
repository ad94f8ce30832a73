package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
)

// Validate performs a parity check between the operator table and the
// implementations of one backend. Every defined operator must have an
// implementation, and every implementation must belong to a defined operator.
func (r *Registry) Validate(ctx context.Context, backend string) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	implemented := make(map[string]bool)
	for _, key := range r.Implementations.Keys(backend) {
		implemented[key] = true
		if _, ok := r.Operators.entries[key]; !ok {
			errs = append(errs, fmt.Sprintf("backend '%s' implements '%s' which has no operator definition", backend, key))
		}
	}

	for _, key := range r.Operators.Keys() {
		if !implemented[key] {
			errs = append(errs, fmt.Sprintf("operator '%s' has no implementation for backend '%s'", key, backend))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "backend", backend, "operators", len(implemented))
	return nil
}
