package richtext

import "testing"

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{`& < > " '`, "&amp; &lt; &gt; &quot; &#39;"},
		{"&amp;", "&amp;amp;"},
		{"&lt;script&gt;", "&amp;lt;script&amp;gt;"},
		{"Grüß Gott", "Grüß Gott"},
	}
	for _, tt := range tests {
		if got := EscapeHTML(tt.in); got != tt.want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeHTMLIsNotIdempotent(t *testing.T) {
	once := EscapeHTML(`"a" & b`)
	twice := EscapeHTML(once)
	if once == twice {
		t.Fatalf("expected escaping twice to differ, both were %q", once)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Fatalf("got %q, want b", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if got := FirstNonEmpty("", "\t"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
