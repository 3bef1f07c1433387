package catalog

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{"WWW.Example.COM.", "  api.example.com  ", "example.com"}
	for _, c := range cases {
		n1, err := Normalize(c)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", c, err)
		}
		n2, err := Normalize(n1)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", n1, err)
		}
		if n1 != n2 {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", c, n1, n2)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, bad := range []string{"", "   ", "foo/bar.com", "foo:bar.com", "has space.com", "foo\tbar.com"} {
		if _, err := Normalize(bad); err == nil {
			t.Errorf("expected Normalize(%q) to fail", bad)
		}
	}
}

func TestParentOfScenarioD(t *testing.T) {
	cases := map[string]string{
		"www.example.com": "example.com",
		"api.example.com": "example.com",
		"example.com":     "example.com",
		"co.uk":           "co.uk",
		"bbc.co.uk":       "co.uk", // documented public-suffix-unaware heuristic
	}
	for in, want := range cases {
		if got := ParentOf(in); got != want {
			t.Errorf("ParentOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParentOfIdempotent(t *testing.T) {
	for _, d := range []string{"www.example.com", "bbc.co.uk", "example.com"} {
		p1 := ParentOf(d)
		p2 := ParentOf(p1)
		if p1 != p2 {
			t.Errorf("ParentOf not idempotent for %q: %q -> %q", d, p1, p2)
		}
	}
}
