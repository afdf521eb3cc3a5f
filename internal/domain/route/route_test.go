package route

import (
	"reflect"
	"sort"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		chain    Chain
		wantSet  []string
		wantAll  bool
		declared bool
	}{
		{
			name:     "no declaring segments",
			chain:    Chain{{RequiresAuth: true}, {Title: "Dashboard"}},
			declared: false,
		},
		{
			name: "single segment",
			chain: Chain{
				{RequiresPermission: true, Permissions: []string{"movies.view"}},
			},
			wantSet:  []string{"movies.view"},
			declared: true,
		},
		{
			name: "three segments merge and dedupe",
			chain: Chain{
				{RequiresPermission: true, Permissions: []string{"a"}},
				{RequiresAuth: true},
				{RequiresPermission: true, Permissions: []string{"b", "a"}},
			},
			wantSet:  []string{"a", "b"},
			declared: true,
		},
		{
			name: "require_all propagates from any segment",
			chain: Chain{
				{RequiresPermission: true, Permissions: []string{"a"}},
				{RequiresPermission: true, Permissions: []string{"b"}, RequireAll: true},
			},
			wantSet:  []string{"a", "b"},
			wantAll:  true,
			declared: true,
		},
		{
			name: "declaring segment with empty list is no requirement",
			chain: Chain{
				{RequiresPermission: true},
			},
			declared: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.chain)
			if got.Declared != tt.declared {
				t.Fatalf("Declared = %v, want %v", got.Declared, tt.declared)
			}
			if got.RequireAll != tt.wantAll {
				t.Errorf("RequireAll = %v, want %v", got.RequireAll, tt.wantAll)
			}
			gotSet := append([]string(nil), got.Permissions...)
			wantSet := append([]string(nil), tt.wantSet...)
			sort.Strings(gotSet)
			sort.Strings(wantSet)
			if !reflect.DeepEqual(gotSet, wantSet) {
				t.Errorf("Permissions = %v, want %v", got.Permissions, tt.wantSet)
			}
		})
	}
}

func TestChainFlags(t *testing.T) {
	chain := Chain{
		{RequiresAuth: true, RequiresAdmin: true},
		{RequiresPermission: true, Permissions: []string{"movies.view"}},
	}

	if !chain.RequiresAuth() {
		t.Error("RequiresAuth() = false, want true")
	}
	if !chain.RequiresAdmin() {
		t.Error("RequiresAdmin() = false, want true")
	}
	if chain.RequiresGuest() {
		t.Error("RequiresGuest() = true, want false")
	}
	if (Chain{}).RequiresAuth() {
		t.Error("empty chain must not require auth")
	}
}
