package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  Go Meetup  ", "Go Meetup"},
		{"escapes html", `<script>alert("x")</script>`, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;"},
		{"strips newlines", "line1\nline2", "line1line2"},
		{"strips control chars", "a\x00b\x1fc", "abc"},
		{"strips delete", "a\x7fb", "ab"},
		{"keeps unicode", "café 北京", "café 北京"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMultiline(t *testing.T) {
	if got := Multiline("line1\nline2\ttabbed"); got != "line1\nline2\ttabbed" {
		t.Fatalf("Multiline stripped allowed whitespace: %q", got)
	}
	if got := Multiline("a\x00b"); got != "ab" {
		t.Fatalf("Multiline kept control char: %q", got)
	}
	if got := Multiline("  padded  "); got != "padded" {
		t.Fatalf("Multiline did not trim: %q", got)
	}
}
