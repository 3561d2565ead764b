package validate

import "testing"

func TestEmailRequired(t *testing.T) {
	for _, raw := range []string{"", " ", "\t", "  \n  "} {
		email, failure := Email(raw)
		if failure != FailureRequired {
			t.Fatalf("Email(%q) failure = %v, want required", raw, failure)
		}
		if email != "" {
			t.Fatalf("Email(%q) returned %q, want empty", raw, email)
		}
	}
}

func TestEmailInvalidShapes(t *testing.T) {
	cases := []string{
		"abc",
		"a@b",
		"a@b..com",
		"user@example",
		"user@example.c",
		"user@example.c0m",
		"@example.com",
		"user@@example.com",
		"user name@example.com",
		"user@exa mple.com",
		"user@sub..example.com",
		"user@example.\u212Aom",
		"user@exampİe.com",
		"\u212Aelvin@example.com",
		"user@example.co\u0131",
	}
	for _, raw := range cases {
		if _, failure := Email(raw); failure != FailureInvalid {
			t.Fatalf("Email(%q) failure = %v, want invalid", raw, failure)
		}
	}
}

func TestMatchEmailRejectsTrailingNewline(t *testing.T) {
	if MatchEmail("user@example.com\n") {
		t.Fatal("trailing newline must not match")
	}
	if !MatchEmail("user@example.com") {
		t.Fatal("plain address must match")
	}
}

func TestEmailValidShapes(t *testing.T) {
	cases := []string{
		"user@example.com",
		"a.b+c@sub.domain.co",
		"USER@EXAMPLE.COM",
		"first_last%tag@my-host.example.org",
		"x@y.io",
	}
	for _, raw := range cases {
		email, failure := Email(raw)
		if failure != FailureNone {
			t.Fatalf("Email(%q) failure = %v, want none", raw, failure)
		}
		if email != raw {
			t.Fatalf("Email(%q) returned %q", raw, email)
		}
	}
}

func TestEmailTrimsSurroundingWhitespace(t *testing.T) {
	email, failure := Email("  user@example.com \n")
	if failure != FailureNone {
		t.Fatalf("unexpected failure %v", failure)
	}
	if email != "user@example.com" {
		t.Fatalf("expected trimmed email, got %q", email)
	}
}

func TestFailureString(t *testing.T) {
	if FailureRequired.String() != "required" || FailureInvalid.String() != "invalid" || FailureNone.String() != "none" {
		t.Fatal("unexpected failure labels")
	}
}
