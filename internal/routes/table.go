// Package routes holds the console's static route table and matches
// navigation targets against it. The table itself is configuration data
// shipped as embedded YAML; all authorization logic lives in the guard and
// the route domain package.
package routes

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cinedesk/cinedesk/internal/domain/route"
)

// Well-known navigation targets used by the guard.
const (
	// LoginPath is where unauthenticated navigations are redirected.
	LoginPath = "/login"
	// DashboardPath is the authenticated landing route.
	DashboardPath = "/admin/dashboard"
	// NotFoundPath renders the not-found screen.
	NotFoundPath = "/404"
)

//go:embed routes.yaml
var tableYAML []byte

// Entry is one route definition as declared in routes.yaml.
type Entry struct {
	Path     string     `yaml:"path"`
	Name     string     `yaml:"name,omitempty"`
	Aliases  []string   `yaml:"aliases,omitempty"`
	Redirect string     `yaml:"redirect,omitempty"`
	Meta     route.Meta `yaml:"meta,omitempty"`
	Children []Entry    `yaml:"children,omitempty"`
}

type tableFile struct {
	Routes []Entry `yaml:"routes"`
}

// Match is the result of resolving a navigation target against the table.
type Match struct {
	// Name is the matched route's name, empty for pure redirect entries.
	Name string
	// Path is the normalized path that was matched.
	Path string
	// Redirect is non-empty when the matched entry forwards elsewhere.
	Redirect string
	// Chain is the metadata of every matched segment, outermost first.
	Chain route.Chain
}

// Table is the parsed route table.
type Table struct {
	entries []Entry
}

// Load parses the embedded route table.
func Load() (*Table, error) {
	return Parse(tableYAML)
}

// Parse builds a Table from YAML route definitions.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("route table declares no routes")
	}
	for i, e := range file.Routes {
		if e.Path == "" {
			return nil, fmt.Errorf("route %d: path is required", i)
		}
	}
	return &Table{entries: file.Routes}, nil
}

// Match resolves a navigation target to a route match. The query string is
// ignored for matching. Returns false when no route matches.
func (t *Table) Match(target string) (Match, bool) {
	path := normalize(target)
	segments := split(path)

	for _, entry := range t.entries {
		paths := append([]string{entry.Path}, entry.Aliases...)
		for _, p := range paths {
			if m, ok := matchEntry(entry, split(normalize(p)), segments, nil); ok {
				m.Path = path
				return m, true
			}
		}
	}
	return Match{}, false
}

// matchEntry matches the remaining path segments against one entry and,
// recursively, its children. parentChain carries the metadata of already
// matched ancestors.
func matchEntry(entry Entry, own, remaining []string, parentChain route.Chain) (Match, bool) {
	if len(own) > len(remaining) {
		return Match{}, false
	}
	for i, seg := range own {
		if !segmentMatches(seg, remaining[i]) {
			return Match{}, false
		}
	}
	rest := remaining[len(own):]
	chain := append(append(route.Chain{}, parentChain...), entry.Meta)

	if len(rest) == 0 {
		return Match{Name: entry.Name, Redirect: entry.Redirect, Chain: chain}, true
	}

	for _, child := range entry.Children {
		if m, ok := matchEntry(child, split(child.Path), rest, chain); ok {
			return m, true
		}
	}
	return Match{}, false
}

// segmentMatches compares one pattern segment against one path segment.
// A ":param" pattern matches any non-empty segment.
func segmentMatches(pattern, seg string) bool {
	if strings.HasPrefix(pattern, ":") {
		return seg != ""
	}
	return pattern == seg
}

// normalize strips the query string and any trailing slash (except for the
// root path itself).
func normalize(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if len(target) > 1 {
		target = strings.TrimSuffix(target, "/")
	}
	if target == "" {
		target = "/"
	}
	return target
}

// split breaks a path into its non-empty segments.
func split(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
