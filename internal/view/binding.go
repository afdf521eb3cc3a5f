// Package view applies permission decisions to UI elements. A binding
// ties one element to a permission requirement; the binder re-applies
// every binding whenever the underlying grant changes, so elements
// appear and disappear as permissions do.
package view

import (
	"sync"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/session"
)

// Element is a UI element the binder can show, hide, or disable. All
// four calls must be idempotent.
type Element interface {
	Show()
	Hide()
	Enable()
	Disable()
}

// Value is the permission requirement attached to an element.
type Value struct {
	single string
	list   []string
	isList bool
}

// None declares no permission requirement; the element is always shown.
func None() Value { return Value{} }

// One requires exactly the given permission.
func One(permission string) Value { return Value{single: permission} }

// Any requires at least one of the given permissions. An empty list
// denies.
func Any(permissions ...string) Value { return Value{list: permissions, isList: true} }

// Modifiers adjust how a requirement is evaluated and enforced.
type Modifiers struct {
	// SuperAdmin restricts the element to superadmins, ignoring Value.
	SuperAdmin bool
	// Role restricts the element to one role (superadmins always pass),
	// ignoring Value.
	Role identity.Role
	// All switches a list Value from any-of to all-of.
	All bool
	// Disable leaves a denied element visible but disabled instead of
	// hiding it.
	Disable bool
}

// Evaluator is the slice of the permission store the binder needs.
type Evaluator interface {
	Has(permission string) bool
	HasAny(permissions []string) bool
	HasAll(permissions []string) bool
}

// SessionSource exposes the current session snapshot for role modifiers.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Binding is one element under the binder's control.
type Binding struct {
	element   Element
	value     Value
	modifiers Modifiers
}

// Binder owns a set of bindings and keeps them consistent with the
// permission state.
type Binder struct {
	perms    Evaluator
	sessions SessionSource

	mu       sync.Mutex
	bindings map[int]*Binding
	ids      map[*Binding]int
	next     int
}

// NewBinder creates a binder.
func NewBinder(perms Evaluator, sessions SessionSource) *Binder {
	return &Binder{
		perms:    perms,
		sessions: sessions,
		bindings: make(map[int]*Binding),
		ids:      make(map[*Binding]int),
	}
}

// Bind registers an element and applies its requirement immediately.
func (b *Binder) Bind(el Element, v Value, mods Modifiers) *Binding {
	bd := &Binding{element: el, value: v, modifiers: mods}

	b.mu.Lock()
	id := b.next
	b.next++
	b.bindings[id] = bd
	b.ids[bd] = id
	b.mu.Unlock()

	b.apply(bd)
	return bd
}

// Release removes a binding. The element is left in its current state.
func (b *Binder) Release(bd *Binding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.ids[bd]; ok {
		delete(b.bindings, id)
		delete(b.ids, bd)
	}
}

// Rebind re-applies every binding against the current grant. Wired to
// the permission store's subscription so UI state tracks grant changes.
func (b *Binder) Rebind() {
	b.mu.Lock()
	all := make([]*Binding, 0, len(b.bindings))
	for _, bd := range b.bindings {
		all = append(all, bd)
	}
	b.mu.Unlock()

	for _, bd := range all {
		b.apply(bd)
	}
}

// Update swaps a binding's requirement and re-applies it.
func (b *Binder) Update(bd *Binding, v Value, mods Modifiers) {
	b.mu.Lock()
	bd.value = v
	bd.modifiers = mods
	b.mu.Unlock()
	b.apply(bd)
}

func (b *Binder) apply(bd *Binding) {
	if b.granted(bd.value, bd.modifiers) {
		bd.element.Show()
		bd.element.Enable()
		return
	}
	if bd.modifiers.Disable {
		bd.element.Show()
		bd.element.Disable()
		return
	}
	bd.element.Hide()
}

func (b *Binder) granted(v Value, mods Modifiers) bool {
	snap := b.sessions.Snapshot()
	if mods.SuperAdmin {
		return snap.SuperAdmin()
	}
	if mods.Role != "" {
		return snap.SuperAdmin() || snap.Role() == mods.Role
	}
	if v.isList {
		if mods.All {
			return b.perms.HasAll(v.list)
		}
		return b.perms.HasAny(v.list)
	}
	if v.single == "" {
		return true
	}
	return b.perms.Has(v.single)
}
