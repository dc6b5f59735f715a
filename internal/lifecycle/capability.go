package lifecycle

import (
	"sort"

	"procurement/internal/model"
)

// Capability is a permission granted to a role. Capabilities are resolved once
// at login and carried in the session; call sites never inspect role names.
type Capability string

const (
	CapCreateRequests  Capability = "requests.create"
	CapApproveRequests Capability = "requests.approve"
	CapManagePayments  Capability = "payments.manage"
)

// Capabilities is the set of capabilities held by a viewer.
type Capabilities map[Capability]struct{}

var roleCapabilities = map[string][]Capability{
	model.RoleStaff:          {CapCreateRequests},
	model.RoleApproverLevel1: {CapCreateRequests, CapApproveRequests},
	model.RoleApproverLevel2: {CapCreateRequests, CapApproveRequests},
	model.RoleFinance:        {CapCreateRequests, CapManagePayments},
}

// CapabilitiesFor resolves the capability set of a role. Unknown roles get none.
func CapabilitiesFor(role string) Capabilities {
	caps := make(Capabilities)
	for _, c := range roleCapabilities[role] {
		caps[c] = struct{}{}
	}
	return caps
}

// Has reports whether want is in the set.
func (c Capabilities) Has(want Capability) bool {
	_, ok := c[want]
	return ok
}

// List returns the capabilities sorted by name.
func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Viewer is the identity a request is being looked at by.
type Viewer struct {
	ID           string
	Role         string
	Capabilities Capabilities
}

// NewViewer resolves the capability set for role.
func NewViewer(id, role string) Viewer {
	return Viewer{ID: id, Role: role, Capabilities: CapabilitiesFor(role)}
}

// Can reports whether the viewer holds want.
func (v Viewer) Can(want Capability) bool {
	return v.Capabilities.Has(want)
}
