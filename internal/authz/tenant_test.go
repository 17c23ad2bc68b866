package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTenantIsolation(t *testing.T) {
	tenant := uuid.New()
	require.NoError(t, CheckTenantIsolation(tenant, tenant))

	other := uuid.New()
	err := CheckTenantIsolation(tenant, other)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindPermissionDenied, e.Kind)
}
