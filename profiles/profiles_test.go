package profiles

import (
	"testing"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/rbac"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestTableName(t *testing.T) {
	assert.Equal(t, "permit_profiles", TableName("permit_"))
	assert.Equal(t, "profiles", TableName(""))
}

func TestFilterMatch(t *testing.T) {
	yes, no := true, false
	p := Profile{Role: rbac.RoleAdmin, Region: "emea", Suspended: true}

	assert.True(t, Filter{}.Match(p))
	assert.True(t, Filter{Role: rbac.RoleAdmin, Region: "emea", Suspended: &yes}.Match(p))
	assert.False(t, Filter{Role: rbac.RoleUser}.Match(p))
	assert.False(t, Filter{Region: "apac"}.Match(p))
	assert.False(t, Filter{Suspended: &no}.Match(p))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Profile{ID: "1", Email: "a@example.com", Role: rbac.RoleUser}))

	err := Validate(Profile{ID: "1", Email: "a@example.com", Role: "Admin"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Equal(t, codes.InvalidArgument, errors.Code(err))
	assert.Equal(t, "unknown role Admin", errors.PublicMessage(err))

	assert.ErrorIs(t, Validate(Profile{Email: "a@example.com", Role: rbac.RoleUser}), ErrInvalidProfile)
	assert.ErrorIs(t, Validate(Profile{ID: "1", Role: rbac.RoleUser}), ErrInvalidProfile)
}
