package auth

import "errors"

// ErrAccessDenied is returned when the role/ownership check fails.
var ErrAccessDenied = errors.New("access denied")

type Role string

const (
	RoleUser       Role = "user"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// ParseRole maps a stored role string onto the closed role set.
// Anything outside the set is rejected, which makes unknown roles deny-all.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RolePharmacist, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Identity is the authenticated caller, attached to the request context
// by the JWT middleware.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   Role
}

type Action string

const (
	ActionOrderRead       Action = "order:read"
	ActionOrderUpdate     Action = "order:update"
	ActionOrderCancel     Action = "order:cancel"
	ActionOrderDelete     Action = "order:delete"
	ActionPaymentCreate   Action = "payment:create"
	ActionPaymentRead     Action = "payment:read"
	ActionPaymentComplete Action = "payment:complete"
	ActionPaymentReadAll  Action = "payment:read-all"
	ActionCatalogWrite    Action = "catalog:write"
	ActionPartnerManage   Action = "partner:manage"
	ActionUserManage      Action = "user:manage"
)

// scope tells how far a role's permission for an action reaches.
type scope int

const (
	scopeNone scope = iota
	scopeOwn        // only resources owned by the caller
	scopeAny
)

// policy is the single per-action access table. Ownership is a separate
// predicate supplied by the caller; both must pass for scopeOwn.
var policy = map[Action]map[Role]scope{
	ActionOrderRead:   {RoleUser: scopeOwn, RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionOrderUpdate: {RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionOrderCancel: {RoleUser: scopeOwn, RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionOrderDelete: {RoleAdmin: scopeAny},
	// Checkout is strictly an owner action, privileged roles included.
	ActionPaymentCreate:   {RoleUser: scopeOwn, RolePharmacist: scopeOwn, RoleAdmin: scopeOwn},
	ActionPaymentRead:     {RoleUser: scopeOwn, RolePharmacist: scopeOwn, RoleAdmin: scopeAny},
	ActionPaymentComplete: {RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionPaymentReadAll:  {RoleAdmin: scopeAny},
	ActionCatalogWrite:    {RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionPartnerManage:   {RolePharmacist: scopeAny, RoleAdmin: scopeAny},
	ActionUserManage:      {RoleAdmin: scopeAny},
}

// Can reports whether role may perform action; owns tells whether the
// caller owns the target resource.
func Can(role Role, action Action, owns bool) bool {
	scopes, ok := policy[action]
	if !ok {
		return false
	}
	switch scopes[role] {
	case scopeAny:
		return true
	case scopeOwn:
		return owns
	}
	return false
}
