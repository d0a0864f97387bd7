package enums

import "fmt"

// ActorRole identifies who is acting on an order.
type ActorRole string

const (
	ActorCustomer ActorRole = "customer"
	ActorVendor   ActorRole = "vendor"
	ActorAdmin    ActorRole = "admin"
	ActorService  ActorRole = "service"
)

var validActorRoles = []ActorRole{
	ActorCustomer,
	ActorVendor,
	ActorAdmin,
	ActorService,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanCancel reports whether the role may be recorded as cancelled_by.
func (r ActorRole) CanCancel() bool {
	return r == ActorCustomer || r == ActorVendor || r == ActorAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
