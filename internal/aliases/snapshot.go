// Package aliases provides the organization-scoped setter-alias and
// closer-display-name lookup tables consumed by the attribution resolver.
package aliases

import (
	"sort"
	"strings"
)

// Alias maps one raw spelling (form value, social handle fragment) to a
// canonical display name.
type Alias struct {
	Alias     string
	Canonical string
}

// Snapshot is an immutable point-in-time view of an organization's alias
// tables. The attribution resolver receives it as an argument so resolution
// stays pure and testable.
type Snapshot struct {
	setters []Alias
	closers map[string]string // lowercased closer email -> display name
}

// NewSnapshot builds a snapshot from alias rows. Setter aliases are sorted so
// partial-match resolution is deterministic.
func NewSnapshot(setters []Alias, closers map[string]string) Snapshot {
	normalized := make([]Alias, 0, len(setters))
	for _, a := range setters {
		key := normalizeKey(a.Alias)
		if key == "" || a.Canonical == "" {
			continue
		}
		normalized = append(normalized, Alias{Alias: key, Canonical: a.Canonical})
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Alias < normalized[j].Alias })

	closerMap := make(map[string]string, len(closers))
	for email, name := range closers {
		closerMap[strings.ToLower(strings.TrimSpace(email))] = name
	}

	return Snapshot{setters: normalized, closers: closerMap}
}

// ResolveSetter maps a raw setter name to its canonical display name.
// Exact normalized match wins; otherwise a fuzzy containment match is
// attempted. Unknown names pass through unchanged.
func (s Snapshot) ResolveSetter(raw string) string {
	key := normalizeKey(raw)
	if key == "" {
		return raw
	}
	for _, a := range s.setters {
		if a.Alias == key {
			return a.Canonical
		}
	}
	for _, a := range s.setters {
		if strings.Contains(key, a.Alias) || strings.Contains(a.Alias, key) {
			return a.Canonical
		}
	}
	return strings.TrimSpace(raw)
}

// ResolveHandle looks up a normalized social handle by partial match against
// the setter alias table. First match wins.
func (s Snapshot) ResolveHandle(handle string) (string, bool) {
	key := normalizeKey(handle)
	if key == "" {
		return "", false
	}
	for _, a := range s.setters {
		if strings.Contains(key, a.Alias) || strings.Contains(a.Alias, key) {
			return a.Canonical, true
		}
	}
	return "", false
}

// CloserDisplayName maps a closer email to the configured display name.
// Falls back to the provided default when no entry exists.
func (s Snapshot) CloserDisplayName(email, fallback string) string {
	if name, ok := s.closers[strings.ToLower(strings.TrimSpace(email))]; ok && name != "" {
		return name
	}
	return fallback
}

// NormalizeHandle strips the leading @, lowercases and trims a social handle.
func NormalizeHandle(handle string) string {
	trimmed := strings.TrimSpace(handle)
	trimmed = strings.TrimPrefix(trimmed, "@")
	return strings.ToLower(trimmed)
}

func normalizeKey(v string) string {
	lowered := strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer("-", "", "_", "", " ", "", ".", "").Replace(lowered)
}
