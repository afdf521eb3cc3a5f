package view

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeElement records its current visibility and enablement.
type fakeElement struct {
	visible bool
	enabled bool
	calls   int
}

func (e *fakeElement) Show()    { e.visible = true; e.calls++ }
func (e *fakeElement) Hide()    { e.visible = false; e.calls++ }
func (e *fakeElement) Enable()  { e.enabled = true; e.calls++ }
func (e *fakeElement) Disable() { e.enabled = false; e.calls++ }

// fakeEvaluator grants a fixed set of permissions.
type fakeEvaluator struct {
	granted map[string]bool
}

func (f *fakeEvaluator) Has(p string) bool { return f.granted[p] }

func (f *fakeEvaluator) HasAny(ps []string) bool {
	for _, p := range ps {
		if f.granted[p] {
			return true
		}
	}
	return false
}

func (f *fakeEvaluator) HasAll(ps []string) bool {
	if len(ps) == 0 {
		return true
	}
	for _, p := range ps {
		if !f.granted[p] {
			return false
		}
	}
	return true
}

type fakeSessions struct {
	role identity.Role
}

func (f *fakeSessions) Snapshot() session.Snapshot {
	return session.Snapshot{
		Token:       "tok",
		User:        &identity.User{ID: "u1", Role: f.role},
		Initialized: true,
	}
}

func newTestBinder(granted ...string) (*Binder, *fakeEvaluator) {
	ev := &fakeEvaluator{granted: make(map[string]bool)}
	for _, p := range granted {
		ev.granted[p] = true
	}
	return NewBinder(ev, &fakeSessions{role: identity.RoleAdmin}), ev
}

func TestBindGrantedShowsAndEnables(t *testing.T) {
	b, _ := newTestBinder("movies.edit")
	el := &fakeElement{}

	b.Bind(el, One("movies.edit"), Modifiers{})
	if !el.visible || !el.enabled {
		t.Errorf("granted element = visible %v enabled %v, want both true", el.visible, el.enabled)
	}
}

func TestBindDeniedHidesByDefault(t *testing.T) {
	b, _ := newTestBinder()
	el := &fakeElement{visible: true, enabled: true}

	b.Bind(el, One("movies.delete"), Modifiers{})
	if el.visible {
		t.Error("denied element must be hidden")
	}
}

func TestDisableModifierKeepsDeniedElementVisible(t *testing.T) {
	b, _ := newTestBinder()
	el := &fakeElement{}

	b.Bind(el, One("movies.delete"), Modifiers{Disable: true})
	if !el.visible {
		t.Error("denied element with disable modifier must stay visible")
	}
	if el.enabled {
		t.Error("denied element with disable modifier must be disabled")
	}
}

func TestListValueSemantics(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		value   Value
		mods    Modifiers
		want    bool
	}{
		{"any with one granted", []string{"movies.view"}, Any("movies.view", "movies.edit"), Modifiers{}, true},
		{"any with none granted", nil, Any("movies.view", "movies.edit"), Modifiers{}, false},
		{"any empty list denies", []string{"movies.view"}, Any(), Modifiers{}, false},
		{"all fully granted", []string{"movies.view", "movies.edit"}, Any("movies.view", "movies.edit"), Modifiers{All: true}, true},
		{"all partially granted", []string{"movies.view"}, Any("movies.view", "movies.edit"), Modifiers{All: true}, false},
		{"no requirement always shows", nil, None(), Modifiers{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBinder(tt.granted...)
			el := &fakeElement{}
			b.Bind(el, tt.value, tt.mods)
			if el.visible != tt.want {
				t.Errorf("visible = %v, want %v", el.visible, tt.want)
			}
		})
	}
}

func TestRoleModifiers(t *testing.T) {
	ev := &fakeEvaluator{granted: map[string]bool{}}

	t.Run("role match shows", func(t *testing.T) {
		b := NewBinder(ev, &fakeSessions{role: identity.RoleCashier})
		el := &fakeElement{}
		b.Bind(el, None(), Modifiers{Role: identity.RoleCashier})
		if !el.visible {
			t.Error("matching role must show")
		}
	})

	t.Run("role mismatch hides", func(t *testing.T) {
		b := NewBinder(ev, &fakeSessions{role: identity.RoleAdmin})
		el := &fakeElement{}
		b.Bind(el, None(), Modifiers{Role: identity.RoleCashier})
		if el.visible {
			t.Error("mismatched role must hide")
		}
	})

	t.Run("superadmin passes role gates", func(t *testing.T) {
		b := NewBinder(ev, &fakeSessions{role: identity.RoleSuperAdmin})
		el := &fakeElement{}
		b.Bind(el, None(), Modifiers{Role: identity.RoleCashier})
		if !el.visible {
			t.Error("superadmin must pass any role gate")
		}
	})

	t.Run("superadmin modifier excludes admins", func(t *testing.T) {
		b := NewBinder(ev, &fakeSessions{role: identity.RoleAdmin})
		el := &fakeElement{}
		b.Bind(el, None(), Modifiers{SuperAdmin: true})
		if el.visible {
			t.Error("superadmin-only element must hide for plain admins")
		}
	})
}

func TestRebindTracksGrantChanges(t *testing.T) {
	b, ev := newTestBinder()
	el := &fakeElement{}
	b.Bind(el, One("movies.edit"), Modifiers{})
	if el.visible {
		t.Fatal("initially denied element must be hidden")
	}

	ev.granted["movies.edit"] = true
	b.Rebind()
	if !el.visible || !el.enabled {
		t.Error("granted element must reappear after Rebind")
	}

	delete(ev.granted, "movies.edit")
	b.Rebind()
	if el.visible {
		t.Error("revoked element must hide again after Rebind")
	}
}

func TestReleaseStopsTracking(t *testing.T) {
	b, ev := newTestBinder()
	el := &fakeElement{}
	bd := b.Bind(el, One("movies.edit"), Modifiers{})
	b.Release(bd)

	before := el.calls
	ev.granted["movies.edit"] = true
	b.Rebind()
	if el.calls != before {
		t.Error("released binding must not be touched by Rebind")
	}
}

func TestUpdateSwapsRequirement(t *testing.T) {
	b, _ := newTestBinder("movies.view")
	el := &fakeElement{}
	bd := b.Bind(el, One("movies.delete"), Modifiers{})
	if el.visible {
		t.Fatal("denied element must start hidden")
	}

	b.Update(bd, One("movies.view"), Modifiers{})
	if !el.visible {
		t.Error("updated requirement must re-evaluate immediately")
	}
}
