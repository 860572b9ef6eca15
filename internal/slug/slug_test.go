package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"", ""},
		{"  Go & Rust: a comparison  ", "go-rust-a-comparison"},
		{"Café Crème", "cafe-creme"},
		{"already-slugged", "already-slugged"},
		{"Multiple   spaces---and__underscores", "multiple-spaces-and-underscores"},
		{"!!!", ""},
		{"Version 2.0", "version-20"},
		{"Don't stop", "dont-stop"},
		{"日本語 タイトル", "日本語-タイトル"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
