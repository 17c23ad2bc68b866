package authz

import (
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/errs"
)

// CheckTenantIsolation enforces spec.md section 4.5.3: a resource's own
// tenant_id must equal the caller's tenant_id. A mismatch is
// PermissionDenied, never NotFound -- callers that want to conceal
// cross-tenant existence must do so themselves.
func CheckTenantIsolation(callerTenantID, resourceTenantID uuid.UUID) error {
	if callerTenantID != resourceTenantID {
		return errs.New(errs.KindPermissionDenied, "resource belongs to a different tenant")
	}
	return nil
}
