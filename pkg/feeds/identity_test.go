package feeds

import "testing"

func TestIdentityDeterministic(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"X", "http://a"},
		{"Breaking: ünïcode", "https://example.com/a?b=c"},
	}
	for _, p := range pairs {
		if Identity(p[0], p[1]) != Identity(p[0], p[1]) {
			t.Errorf("Identity(%q, %q) is not deterministic", p[0], p[1])
		}
	}
}

func TestIdentityKnownValues(t *testing.T) {
	if got := Identity("", ""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Identity(\"\", \"\") = %s", got)
	}
	if got := Identity("X", "http://a"); len(got) != 32 {
		t.Errorf("expected 32-char hex id, got %q", got)
	}
}

func TestIdentityDependsOnBothFields(t *testing.T) {
	base := Identity("X", "http://a")
	if base == Identity("Y", "http://a") {
		t.Error("title change should change id")
	}
	if base == Identity("X", "http://b") {
		t.Error("link change should change id")
	}
}
