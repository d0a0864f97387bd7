package authz

import (
	"fmt"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Resources guarded by the route authorizer.
const (
	ResourceOrders        = "orders"
	ResourceOrderPayments = "orders/payments"
	ResourceOrderOTP      = "orders/otp"
	ResourceEarnings      = "earnings"
	ResourcePresence      = "presence"
	ResourceNotifications = "notifications"
	ResourceDevOrders     = "dev/orders"
)

// Actions paired with a resource.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionWrite  = "write"
	ActionAll    = "*"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy is a single allow rule.
type Policy struct {
	Role     enums.ActorRole
	Resource string
	Action   string
}

// DefaultPolicies maps every actor role onto the surfaces it may touch.
func DefaultPolicies() []Policy {
	return []Policy{
		{enums.ActorCustomer, ResourceOrders, ActionCreate},
		{enums.ActorCustomer, ResourceOrderOTP, ActionCreate},
		{enums.ActorCustomer, ResourceOrderPayments, ActionWrite},

		{enums.ActorVendor, ResourceOrders, ActionRead},
		{enums.ActorVendor, ResourceOrders, ActionWrite},
		{enums.ActorVendor, ResourceOrderPayments, ActionWrite},
		{enums.ActorVendor, ResourceOrderOTP, ActionWrite},
		{enums.ActorVendor, ResourceEarnings, ActionRead},
		{enums.ActorVendor, ResourcePresence, ActionRead},
		{enums.ActorVendor, ResourcePresence, ActionWrite},
		{enums.ActorVendor, ResourceNotifications, ActionRead},
		{enums.ActorVendor, ResourceNotifications, ActionWrite},

		{enums.ActorService, ResourceOrders, ActionCreate},
		{enums.ActorService, ResourceDevOrders, ActionAll},

		{enums.ActorAdmin, "*", ActionAll},
	}
}

// Authorizer answers role/resource/action questions.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// New builds an in-memory enforcer seeded with policies.
func New(policies []Policy) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}

	rules := make([][]string, 0, len(policies))
	for _, p := range policies {
		if !p.Role.IsValid() {
			return nil, fmt.Errorf("invalid policy role %q", p.Role)
		}
		rules = append(rules, []string{p.Role.String(), p.Resource, p.Action})
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("seed authz policies: %w", err)
		}
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// NewDefault builds an authorizer seeded with DefaultPolicies.
func NewDefault() (*Authorizer, error) {
	return New(DefaultPolicies())
}

// Allowed reports whether role may perform action on resource.
func (a *Authorizer) Allowed(role enums.ActorRole, resource, action string) (bool, error) {
	if !role.IsValid() {
		return false, nil
	}
	ok, err := a.enforcer.Enforce(role.String(), resource, action)
	if err != nil {
		return false, fmt.Errorf("authz check failed: %w", err)
	}
	return ok, nil
}
