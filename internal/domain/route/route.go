// Package route contains the navigation metadata model and the pure
// resolution of a matched route chain into a single permission requirement.
package route

// Meta is the authorization metadata declared on one route segment.
type Meta struct {
	// Title is the human-readable screen title (informational).
	Title string `yaml:"title,omitempty"`
	// RequiresAuth marks the segment as needing an authenticated session.
	RequiresAuth bool `yaml:"requires_auth,omitempty"`
	// RequiresAdmin restricts the segment to admin-tier roles.
	RequiresAdmin bool `yaml:"requires_admin,omitempty"`
	// RequiresGuest marks guest-only screens such as the login page.
	RequiresGuest bool `yaml:"requires_guest,omitempty"`
	// RequiresPermission marks the segment as declaring a permission list.
	RequiresPermission bool `yaml:"requires_permission,omitempty"`
	// Permissions is the permission list for this segment.
	Permissions []string `yaml:"permissions,omitempty"`
	// RequireAll switches the merged requirement from any-of to all-of.
	RequireAll bool `yaml:"require_all,omitempty"`
}

// Chain is the ordered metadata of every matched segment for a navigation
// target, outermost segment first.
type Chain []Meta

// RequiresAuth reports whether any matched segment needs authentication.
func (c Chain) RequiresAuth() bool {
	for _, m := range c {
		if m.RequiresAuth {
			return true
		}
	}
	return false
}

// RequiresAdmin reports whether any matched segment is admin-only.
func (c Chain) RequiresAdmin() bool {
	for _, m := range c {
		if m.RequiresAdmin {
			return true
		}
	}
	return false
}

// RequiresGuest reports whether any matched segment is guest-only.
func (c Chain) RequiresGuest() bool {
	for _, m := range c {
		if m.RequiresGuest {
			return true
		}
	}
	return false
}

// Requirement is the merged permission requirement of a matched chain.
type Requirement struct {
	// Permissions is the deduplicated union across declaring segments.
	Permissions []string
	// RequireAll is true if any declaring segment demanded all permissions.
	RequireAll bool
	// Declared is false when no segment declared a permission requirement;
	// such navigations are granted without consulting the permission store.
	Declared bool
}

// Resolve merges the permission declarations of every matched segment.
// Segments without RequiresPermission contribute nothing. RequireAll is
// OR-combined across segments: one strict segment makes the whole merged
// set strict. A merge that ends up with zero permissions is reported as
// undeclared, not as an unsatisfiable requirement.
func Resolve(chain Chain) Requirement {
	var req Requirement
	seen := make(map[string]struct{})

	for _, m := range chain {
		if !m.RequiresPermission {
			continue
		}
		req.Declared = true
		if m.RequireAll {
			req.RequireAll = true
		}
		for _, p := range m.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			req.Permissions = append(req.Permissions, p)
		}
	}

	if len(req.Permissions) == 0 {
		req.Declared = false
		req.RequireAll = false
	}
	return req
}
