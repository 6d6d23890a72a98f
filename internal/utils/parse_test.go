package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if f, ok := ParseFloat("40.7128"); !ok || f != 40.7128 {
		t.Fatalf("ParseFloat(40.7128) = %v, %v", f, ok)
	}
	if _, ok := ParseFloat(""); ok {
		t.Fatal("empty string should not parse")
	}
	if _, ok := ParseFloat("north"); ok {
		t.Fatal("non-numeric string should not parse")
	}
}

func TestFloatDefault(t *testing.T) {
	if got := FloatDefault("", 4.5); got != 4.5 {
		t.Fatalf("FloatDefault empty = %v", got)
	}
	if got := FloatDefault("3.25", 0); got != 3.25 {
		t.Fatalf("FloatDefault parse = %v", got)
	}
}
