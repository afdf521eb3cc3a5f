package rbac

// Detail is one granted permission with the grouping metadata the backend
// attaches to it.
type Detail struct {
	Permission  string `json:"permission"`
	Module      string `json:"module"`
	Description string `json:"description,omitempty"`
}

// Set is an immutable snapshot of a user's granted permissions.
// Membership checks are pure: authentication state and the super-admin
// bypass are layered on top by the permission store.
type Set struct {
	members map[string]struct{}
	order   []string
	details []Detail
}

// NewSet builds a Set from a permission list and its details.
// Duplicates in the list are collapsed; insertion order is preserved.
func NewSet(permissions []string, details []Detail) Set {
	s := Set{members: make(map[string]struct{}, len(permissions))}
	for _, p := range permissions {
		if _, ok := s.members[p]; ok {
			continue
		}
		s.members[p] = struct{}{}
		s.order = append(s.order, p)
	}
	s.details = make([]Detail, len(details))
	copy(s.details, details)
	return s
}

// Len returns the number of distinct permissions in the set.
func (s Set) Len() int { return len(s.order) }

// Contains reports membership of a single permission identifier.
func (s Set) Contains(p string) bool {
	_, ok := s.members[p]
	return ok
}

// ContainsAny reports whether at least one of the given permissions is a
// member. An empty list is never satisfied.
func (s Set) ContainsAny(list []string) bool {
	for _, p := range list {
		if s.Contains(p) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every given permission is a member.
// An empty list is vacuously satisfied.
func (s Set) ContainsAll(list []string) bool {
	for _, p := range list {
		if !s.Contains(p) {
			return false
		}
	}
	return true
}

// List returns the permissions in insertion order.
func (s Set) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Details returns the granted permission details in backend order.
func (s Set) Details() []Detail {
	out := make([]Detail, len(s.details))
	copy(out, s.details)
	return out
}

// ByModule groups the permission details by their module name.
func (s Set) ByModule() map[string][]Detail {
	grouped := make(map[string][]Detail)
	for _, d := range s.details {
		grouped[d.Module] = append(grouped[d.Module], d)
	}
	return grouped
}

// GrantedModules returns the distinct module names present in the details,
// in first-seen order.
func (s Set) GrantedModules() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range s.details {
		if _, ok := seen[d.Module]; ok {
			continue
		}
		seen[d.Module] = struct{}{}
		out = append(out, d.Module)
	}
	return out
}
