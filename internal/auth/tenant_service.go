package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/identity"
)

// CreateTenant provisions a new tenant, the top-level isolation boundary
// every user/subscription/webhook hangs off (spec.md section 3). Drops
// the tenant secret-key/branding fields a multi-tenant admin console would
// need, since those are outside this core's identity/authorization/
// billing/delivery scope.
func (s *Service) CreateTenant(ctx context.Context, name, slug string) (identity.Tenant, error) {
	tenant := identity.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: s.clock(),
	}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return identity.Tenant{}, err
	}

	s.audit.Log(ctx, audit.EventTenantCreated, audit.LogParams{
		TargetID: tenant.ID,
		TenantID: tenant.ID,
		Metadata: map[string]string{"slug": slug, "name": name},
	})
	return tenant, nil
}
