package engine

import "testing"

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<b>bold</b> text", "bold text"},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanHTML(tt.in); got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanCaption(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"entities", "I&#39;m here", "I'm here"},
		{"double encoded", "don&amp;#39;t stop", "don't stop"},
		{"tags and newlines", "<font color=\"#fff\">never\ngonna</font>", "never gonna"},
		{"amp", "rock &amp; roll", "rock & roll"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCaption(tt.in); got != tt.want {
				t.Errorf("CleanCaption(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
