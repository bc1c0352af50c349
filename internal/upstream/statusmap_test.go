package upstream

import "testing"

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"choduyet", "pending"},
		{"daduyet", "paid"},
		{"dahuy", "canceled"},
		{"pending", "pending"},
		{"refunded", "refunded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := MapStatus(tc.in); got != tc.want {
			t.Errorf("MapStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
