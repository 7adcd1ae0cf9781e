package domain

import (
	"errors"
	"testing"

	"github.com/yanizio/eventsite/internal/dnscheck"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"example.live":                      "example.live",
		"WWW.Example.Live":                  "example.live",
		"  www.example.live.  ":             "example.live",
		"https://www.example.live/path?q=1": "example.live",
		"example.live:8443":                 "example.live",
		"www.www.example.live":              "example.live",
		"tickets.example.live":              "tickets.example.live",
		"wwwexample.live":                   "wwwexample.live",
		"":                                  "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

// lookup(normalize(h)) == lookup(normalize("www." + h)) holds when the
// normalised keys are equal.
func TestNormalizeWWWSymmetry(t *testing.T) {
	hosts := []string{
		"example.live", "Example.LIVE", "www.example.live", "a.b.c.example.co.uk",
		"www.www.x.io", "example.live:80", "www", "w.example.live", "", ".",
		" x", " www.x", "x .", "x. .",
	}
	for _, h := range hosts {
		if a, b := Normalize(h), Normalize("www."+h); a != b {
			t.Errorf("asymmetric for %q: %q vs %q", h, a, b)
		}
		if n := Normalize(h); Normalize(n) != n {
			t.Errorf("not idempotent for %q", h)
		}
	}
}

func TestValidateHost(t *testing.T) {
	ok := []string{"example.live", "tickets.example.co.uk", "a-b.example.com"}
	for _, h := range ok {
		if err := ValidateHost(h); err != nil {
			t.Errorf("ValidateHost(%q) = %v", h, err)
		}
	}

	bad := map[string]error{
		"":             ErrHostEmpty,
		"localhost":    ErrHostMalformed,
		"-bad.example": ErrHostMalformed,
		"exa mple.com": ErrHostMalformed,
		"co.uk":        ErrHostIsSuffix,
		"com.au":       ErrHostIsSuffix,
	}
	for h, want := range bad {
		if err := ValidateHost(h); !errors.Is(err, want) {
			t.Errorf("ValidateHost(%q) = %v, want %v", h, err, want)
		}
	}
}

func TestIsApex(t *testing.T) {
	if !IsApex("example.live") || !IsApex("example.co.uk") {
		t.Fatal("apex not detected")
	}
	if IsApex("tickets.example.live") {
		t.Fatal("subdomain reported as apex")
	}
}

func TestGenerateInstructions(t *testing.T) {
	want := dnscheck.Expectation{CNAME: "sites.eventsite.app", IPs: []string{"203.0.113.10"}}

	sub := GenerateInstructions("tickets.example.live", want)
	if len(sub) != 2 || sub[0].Type != "CNAME" || sub[0].Priority != "recommended" ||
		sub[1].Type != "A" || sub[1].Priority != "alternative" {
		t.Fatalf("subdomain instructions = %+v", sub)
	}

	apex := GenerateInstructions("example.live", want)
	if len(apex) != 1 || apex[0].Type != "A" || apex[0].Value != "203.0.113.10" {
		t.Fatalf("apex instructions = %+v", apex)
	}

	alias := GenerateInstructions("example.live", dnscheck.Expectation{CNAME: "sites.eventsite.app"})
	if len(alias) != 1 || alias[0].Type != "ALIAS" {
		t.Fatalf("apex without IPs = %+v", alias)
	}
}
