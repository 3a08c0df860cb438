package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "plain", in: "Summer Promo", want: "Summer Promo"},
		{name: "separators", in: "a/b\\c:d*e", want: "a-b-c-d-e"},
		{name: "removed", in: `what?"<now>|`, want: "whatnow"},
		{name: "parent dir", in: "../secret", want: "-secret"},
		{name: "hidden", in: ".env", want: "env"},
		{name: "control", in: "line\x00break\x07", want: "linebreak"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.in); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"":            "unknown",
		"ABC-123":     "abc-123",
		"proj 42/x":   "proj_42_x",
		"__--__":      "unknown",
		"665f1c2e9ab": "665f1c2e9ab",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVideoFileName(t *testing.T) {
	if got := VideoFileName("Launch: Day 1", "665f"); got != "Launch- Day 1-665f.mp4" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := VideoFileName("???", "abc"); got != "project-abc.mp4" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Bold <b>intro</b> card", want: "Bold intro card"},
		{in: "<script>alert(1)</script>Clean", want: "Clean"},
		{in: "Fish &amp; chips\n\n  today", want: "Fish & chips today"},
	}
	for _, tc := range tests {
		if got := PlainText(tc.in); got != tc.want {
			t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("a long description", 9); got != "a long..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "yes", "no") != "yes" || Ternary(false, 1, 2) != 2 {
		t.Fatal("unexpected ternary result")
	}
}
