package authz

// Decision is the outcome of an authorization question. Abstain means the source has no
// opinion, which callers composing several sources must not treat as a veto.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

func (d Decision) Allowed() bool {
	return d == Allow
}

func decide(allowed bool) Decision {
	if allowed {
		return Allow
	}
	return Deny
}
