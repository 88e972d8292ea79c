package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmcleod/sharedrop/authz"
	"github.com/jmcleod/sharedrop/identity"
)

func TestPolicyTable(t *testing.T) {
	tests := []struct {
		op    authz.Operation
		admin bool
		guest bool
	}{
		{authz.ListFiles, true, true},
		{authz.DownloadFile, true, true},
		{authz.UploadFile, true, false},
		{authz.DeleteFile, true, false},
		{authz.RenameFile, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.admin, authz.Allowed(identity.RoleAdmin, tt.op))
			assert.Equal(t, tt.guest, authz.Allowed(identity.RoleGuest, tt.op))
		})
	}
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, authz.Authorize(identity.RoleAdmin, authz.UploadFile))
	assert.ErrorIs(t, authz.Authorize(identity.RoleGuest, authz.UploadFile), authz.ErrForbidden)
}

func TestUnknownRoleDenied(t *testing.T) {
	assert.False(t, authz.Allowed(identity.Role("root"), authz.UploadFile))
	assert.False(t, authz.Allowed(identity.Role(""), authz.ListFiles))
}
