package authz

import (
	"context"

	"github.com/tansive/tansive-tenancy/pkg/types"
)

// Authorizer is a source of authorization decisions.
type Authorizer interface {
	Decide(ctx context.Context, user types.User, perm string, target any) Decision
}

type AuthorizerFunc func(ctx context.Context, user types.User, perm string, target any) Decision

func (f AuthorizerFunc) Decide(ctx context.Context, user types.User, perm string, target any) Decision {
	return f(ctx, user, perm, target)
}

// Chain combines several sources. Any Allow grants access; a Deny from one source is not a veto
// when another allows. Without an Allow the chain denies if any source denied and abstains
// otherwise.
type Chain []Authorizer

func (c Chain) Decide(ctx context.Context, user types.User, perm string, target any) Decision {
	result := Abstain
	for _, a := range c {
		switch a.Decide(ctx, user, perm, target) {
		case Allow:
			return Allow
		case Deny:
			result = Deny
		}
	}
	return result
}

// Allows grants access only when some source allows.
func (c Chain) Allows(ctx context.Context, user types.User, perm string, target any) bool {
	return c.Decide(ctx, user, perm, target).Allowed()
}
