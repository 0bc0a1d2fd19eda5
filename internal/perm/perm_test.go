package perm

import (
	"reflect"
	"testing"
)

func TestFromStringRoundTrip(t *testing.T) {
	s := FromString("ma")
	if got := s.String(); got != "am" {
		t.Fatalf("expected canonical order %q, got %q", "am", got)
	}
	if !s.Has('a') || !s.Has('m') || s.Has('o') {
		t.Fatalf("unexpected granted modes: %q", s.String())
	}
}

func TestFromStringIgnoresJunk(t *testing.T) {
	s := FromString("z1o_")
	if got := s.String(); got != "o" {
		t.Fatalf("expected %q, got %q", "o", got)
	}
}

func TestGrantableCascade(t *testing.T) {
	cases := []struct {
		granted   string
		grantable string
	}{
		{"", ""},
		{"o", "amtqsb"},
		{"a", "mtqsb"},
		{"m", "mtq"},
		{"t", ""},
		{"oa", "amtqsb"},
		{"mb", "mtq"},
	}
	for _, c := range cases {
		s := FromString(c.granted)
		if got := s.Grantable(); got != c.grantable {
			t.Errorf("granted %q: expected grantable %q, got %q", c.granted, c.grantable, got)
		}
	}
}

func TestGrantableRecomputedAfterApply(t *testing.T) {
	s := FromString("o")
	s.Apply([]Change{{Grant: false, Mode: 'o'}, {Grant: true, Mode: 't'}})
	if got := s.Grantable(); got != "" {
		t.Fatalf("expected empty grantable after losing o, got %q", got)
	}
	s.Apply([]Change{{Grant: true, Mode: 'm'}})
	if got := s.Grantable(); got != "mtq" {
		t.Fatalf("expected grantable %q after gaining m, got %q", "mtq", got)
	}
}

func TestParseModesUnfiltered(t *testing.T) {
	changes := ParseModes("x+o-m+t#t-t+-+t1")
	want := []Change{
		{Grant: true, Mode: 'o'},
		{Grant: false, Mode: 'm'},
		{Grant: true, Mode: 't'},
		{Grant: true, Mode: 't'},
		{Grant: false, Mode: 't'},
		{Grant: true, Mode: 't'},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("expected %v, got %v", want, changes)
	}
}

func TestReadModesNoPrivileges(t *testing.T) {
	s := FromString("t")
	if changes := s.ReadModes("+o-m+t"); changes != nil {
		t.Fatalf("expected nil for caller with empty grantable, got %v", changes)
	}
}

// The dirty-input walkthrough: letters are filtered before the sign scan,
// permission filtering runs last over well-formed tokens.
func TestReadModesDirtyInput(t *testing.T) {
	s := FromString("m") // grantable: m, t, q

	changes := s.ReadModes("x+o-m+t#t-t+-+t1")
	want := []Change{
		{Grant: false, Mode: 'm'},
		{Grant: true, Mode: 't'},
		{Grant: true, Mode: 't'},
		{Grant: false, Mode: 't'},
		{Grant: true, Mode: 't'},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("expected %v, got %v", want, changes)
	}

	target := NewSet()
	target.Apply(changes)
	if got := target.String(); got != "t" {
		t.Fatalf("expected net result %q, got %q", "t", got)
	}
}

func TestReadModesBareLettersDefaultToGrant(t *testing.T) {
	s := FromString("o")
	changes := s.ReadModes("tq-s b")
	want := []Change{
		{Grant: true, Mode: 't'},
		{Grant: true, Mode: 'q'},
		{Grant: false, Mode: 's'},
		{Grant: true, Mode: 'b'},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("expected %v, got %v", want, changes)
	}
}

func TestReadModesSignOverwrite(t *testing.T) {
	s := FromString("o")
	changes := s.ReadModes("+-t-+q")
	want := []Change{
		{Grant: false, Mode: 't'},
		{Grant: true, Mode: 'q'},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("expected %v, got %v", want, changes)
	}
}

func TestApplyIdempotent(t *testing.T) {
	s := FromString("o")
	changes := s.ReadModes("+t-q+s")

	target := FromString("q")
	target.Apply(changes)
	once := target.String()
	grantableOnce := target.Grantable()

	target.Apply(changes)
	if target.String() != once {
		t.Fatalf("second apply changed granted set: %q vs %q", target.String(), once)
	}
	if target.Grantable() != grantableOnce {
		t.Fatalf("second apply changed grantable set: %q vs %q", target.Grantable(), grantableOnce)
	}
}
