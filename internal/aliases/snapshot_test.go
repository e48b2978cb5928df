package aliases

import "testing"

func testSnapshot() Snapshot {
	return NewSnapshot(
		[]Alias{
			{Alias: "jake", Canonical: "Jake Miller"},
			{Alias: "sarah_w", Canonical: "Sarah Wong"},
			{Alias: "Mike R.", Canonical: "Mike Romero"},
		},
		map[string]string{"Closer@Acme.Test": "Dana Reyes"},
	)
}

func TestResolveSetter(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		raw  string
		want string
	}{
		{"jake", "Jake Miller"},
		{"JAKE", "Jake Miller"},
		{"  jake  ", "Jake Miller"},
		{"sarah-w", "Sarah Wong"},   // punctuation-insensitive
		{"sarah w", "Sarah Wong"},   // spaces ignored
		{"mike.r", "Mike Romero"},   // dots ignored
		{"jakey", "Jake Miller"},    // fuzzy containment
		{"somebody", "somebody"},    // unknown passes through
		{"  somebody ", "somebody"}, // trimmed passthrough
		{"", ""},
	}
	for _, tt := range tests {
		if got := snap.ResolveSetter(tt.raw); got != tt.want {
			t.Errorf("ResolveSetter(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolveHandle(t *testing.T) {
	snap := testSnapshot()

	if got, ok := snap.ResolveHandle("jake_fitness"); !ok || got != "Jake Miller" {
		t.Errorf("ResolveHandle(jake_fitness) = %q, %v", got, ok)
	}
	if got, ok := snap.ResolveHandle("sarahw"); !ok || got != "Sarah Wong" {
		t.Errorf("ResolveHandle(sarahw) = %q, %v", got, ok)
	}
	if _, ok := snap.ResolveHandle("nobody_here"); ok {
		t.Error("unknown handle must not resolve")
	}
	if _, ok := snap.ResolveHandle(""); ok {
		t.Error("empty handle must not resolve")
	}
}

func TestCloserDisplayName(t *testing.T) {
	snap := testSnapshot()

	if got := snap.CloserDisplayName("closer@acme.test", "fallback"); got != "Dana Reyes" {
		t.Errorf("got %q, want configured display name", got)
	}
	if got := snap.CloserDisplayName("  CLOSER@ACME.TEST ", "fallback"); got != "Dana Reyes" {
		t.Errorf("got %q, lookup should normalize the email", got)
	}
	if got := snap.CloserDisplayName("other@acme.test", "Organizer Name"); got != "Organizer Name" {
		t.Errorf("got %q, want fallback for unknown closer", got)
	}
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"@Jake_Fitness", "jake_fitness"},
		{"  @sarah  ", "sarah"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHandle(tt.in); got != tt.want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapshotDropsInvalidRows(t *testing.T) {
	snap := NewSnapshot([]Alias{
		{Alias: "", Canonical: "Nobody"},
		{Alias: "ghost", Canonical: ""},
		{Alias: "jake", Canonical: "Jake Miller"},
	}, nil)

	if got := snap.ResolveSetter("ghost"); got != "ghost" {
		t.Errorf("alias without canonical resolved to %q", got)
	}
	if got := snap.ResolveSetter("jake"); got != "Jake Miller" {
		t.Errorf("valid alias resolved to %q", got)
	}
}
