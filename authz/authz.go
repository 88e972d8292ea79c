// Package authz decides whether a role may perform a file operation.
// The policy is a fixed table: decisions are pure functions of (role,
// operation) with no resource-level ownership.
package authz

import (
	"errors"

	"github.com/jmcleod/sharedrop/identity"
)

// ErrForbidden is returned when the role lacks permission for the operation.
var ErrForbidden = errors.New("operation not permitted for role")

// Operation identifies a guarded file operation.
type Operation string

const (
	ListFiles    Operation = "listFiles"
	DownloadFile Operation = "downloadFile"
	UploadFile   Operation = "uploadFile"
	DeleteFile   Operation = "deleteFile"
	RenameFile   Operation = "renameFile"
)

// policy maps each operation to the roles allowed to perform it. Guests have
// read and list only; all mutations are admin-only.
var policy = map[Operation]map[identity.Role]bool{
	ListFiles:    {identity.RoleAdmin: true, identity.RoleGuest: true},
	DownloadFile: {identity.RoleAdmin: true, identity.RoleGuest: true},
	UploadFile:   {identity.RoleAdmin: true},
	DeleteFile:   {identity.RoleAdmin: true},
	RenameFile:   {identity.RoleAdmin: true},
}

// Allowed reports whether role may perform op.
func Allowed(role identity.Role, op Operation) bool {
	return policy[op][role]
}

// Authorize returns ErrForbidden unless role may perform op.
func Authorize(role identity.Role, op Operation) error {
	if !Allowed(role, op) {
		return ErrForbidden
	}
	return nil
}
