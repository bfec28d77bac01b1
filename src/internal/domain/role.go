package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) rank() int {
	switch r {
	case RoleCustomer:
		return 1
	case RoleEmployee:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.rank() > 0
}

// AtLeast reports whether r is the same as or above min. Unknown roles never
// qualify.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.rank() >= min.rank()
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", NewError(CodeInvalidInput, "unknown role %q", raw)
	}
	return role, nil
}

// Actor is the caller identity supplied by the auth layer. The core only
// authorizes against it.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return NewError(CodeInvalidInput, "actor id is required")
	}
	if !a.Role.Valid() {
		return NewError(CodeInvalidInput, "actor role %q is not supported", a.Role)
	}
	return nil
}

func (a Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.ID, a.Role)
}

// SystemApprover is recorded as the decider of auto-approved transactions.
const SystemApprover = "system"
