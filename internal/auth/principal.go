package auth

// Capability is a named permission held by a caller. The service never
// authenticates; it only checks capabilities that an upstream layer already
// resolved.
type Capability string

const (
	CapPlaceOrder    Capability = "place-order"
	CapCancelOrder   Capability = "cancel-order"
	CapManageCatalog Capability = "manage-catalog"
)

type Principal struct {
	Subject      string
	capabilities map[Capability]struct{}
}

func NewPrincipal(subject string, caps ...Capability) *Principal {
	p := &Principal{
		Subject:      subject,
		capabilities: make(map[Capability]struct{}, len(caps)),
	}
	for _, c := range caps {
		p.capabilities[c] = struct{}{}
	}
	return p
}

func (p *Principal) Can(c Capability) bool {
	if p == nil {
		return false
	}
	_, ok := p.capabilities[c]
	return ok
}

// IsAdmin reports whether the caller may manage catalog and company records.
func (p *Principal) IsAdmin() bool {
	return p.Can(CapManageCatalog)
}
