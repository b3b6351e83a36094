package httpapi

import "testing"

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"tabtear", "/tabtear"},
		{"/tabtear", "/tabtear"},
		{"/tabtear/", "/tabtear"},
		{" /desk/tabs// ", "/desk/tabs"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
