// Package access holds the caller identity and the one capability check every entry point
// goes through.
package access

import (
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
)

type Identity struct {
	UserID uuid.UUID
	Role   string
}

func (i Identity) Anonymous() bool { return i.UserID == uuid.Nil }

// Requirement is satisfied when the identity holds one of Roles, or when OwnerID is set and
// equals the identity's user. A non-empty OwnerRole additionally requires the owner to hold it.
type Requirement struct {
	Roles     []string
	OwnerID   *uuid.UUID
	OwnerRole string
}

type Decision int

const (
	Allow Decision = iota
	DenyAnonymous
	DenyForbidden
)

func Decide(id Identity, req Requirement) Decision {
	if id.Anonymous() {
		return DenyAnonymous
	}
	if req.OwnerID != nil && *req.OwnerID == id.UserID && (req.OwnerRole == "" || req.OwnerRole == id.Role) {
		return Allow
	}
	for _, role := range req.Roles {
		if role == id.Role {
			return Allow
		}
	}
	return DenyForbidden
}

// PayoutOperators may create, cancel and decide payout requests on anyone's behalf.
var PayoutOperators = []string{models.RoleAdmin, models.RoleSuperAdmin, models.RoleAccountant}

// OrgAdmins may remove members from an organization.
var OrgAdmins = []string{models.RoleAdmin, models.RoleSuperAdmin}

// OwnerOr builds the common "the owner, or one of these roles" requirement.
func OwnerOr(owner uuid.UUID, roles ...string) Requirement {
	return Requirement{Roles: roles, OwnerID: &owner}
}

// TherapistOr is OwnerOr restricted to an owner acting as a therapist.
func TherapistOr(owner uuid.UUID, roles ...string) Requirement {
	return Requirement{Roles: roles, OwnerID: &owner, OwnerRole: models.RoleLogoped}
}

// Roles builds a role-only requirement.
func Roles(roles ...string) Requirement {
	return Requirement{Roles: roles}
}

func IsElevated(id Identity) bool {
	return Decide(id, Roles(PayoutOperators...)) == Allow
}
