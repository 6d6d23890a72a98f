package identity

import (
	"errors"
	"testing"
)

func TestResolve_PrefersUserObjectUID(t *testing.T) {
	got, err := Resolve(Candidates{
		UserJSON:  `{"uid":"u-123","email":"a@b.com"}`,
		AuthToken: "tok-456",
		Email:     "a@b.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "u-123" {
		t.Fatalf("want u-123, got %q", got)
	}
}

func TestResolve_FallsBackToToken(t *testing.T) {
	got, err := Resolve(Candidates{AuthToken: "tok-456", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok-456" {
		t.Fatalf("want tok-456, got %q", got)
	}
}

func TestResolve_FallsBackToEmail(t *testing.T) {
	got, err := Resolve(Candidates{Email: "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a@b.com" {
		t.Fatalf("want a@b.com, got %q", got)
	}
}

func TestResolve_MalformedUserJSONFallsThrough(t *testing.T) {
	got, err := Resolve(Candidates{UserJSON: `{"uid":`, AuthToken: "tok-456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok-456" {
		t.Fatalf("want tok-456, got %q", got)
	}
}

func TestResolve_UserObjectWithoutUIDFallsThrough(t *testing.T) {
	got, err := Resolve(Candidates{UserJSON: `{"email":"a@b.com"}`, AuthToken: "tok-456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok-456" {
		t.Fatalf("want tok-456, got %q", got)
	}
}

func TestResolve_SentinelStringsAreAbsent(t *testing.T) {
	cases := []Candidates{
		{},
		{UserJSON: "undefined", AuthToken: "undefined", Email: "undefined"},
		{UserJSON: "null", AuthToken: "null", Email: "null"},
		{UserJSON: "  ", AuthToken: "\t", Email: ""},
	}
	for i, c := range cases {
		got, err := Resolve(c)
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("case %d: want ErrUnauthenticated, got %v (key %q)", i, err, got)
		}
		if got != "" {
			t.Fatalf("case %d: key must be empty on failure, got %q", i, got)
		}
	}
}

func TestResolve_SentinelTokenSkippedButEmailUsed(t *testing.T) {
	got, err := Resolve(Candidates{AuthToken: "undefined", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a@b.com" {
		t.Fatalf("want a@b.com, got %q", got)
	}
}
