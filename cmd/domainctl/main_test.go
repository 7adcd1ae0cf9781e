package main

import (
	"bytes"
	"testing"
)

func TestValidUsage(t *testing.T) {
	cases := []struct {
		cmd  string
		rest []string
		ok   bool
	}{
		{"check", []string{"example.live"}, true},
		{"verify", []string{"d1"}, true},
		{"dns", []string{"example.live"}, true},
		{"migrate", nil, true},
		{"check", nil, false},
		{"check", []string{"a", "b"}, false},
		{"migrate", []string{"now"}, false},
		{"", nil, false},
		{"delete", []string{"d1"}, false},
	}
	for _, tc := range cases {
		if got := validUsage(tc.cmd, tc.rest); got != tc.ok {
			t.Errorf("validUsage(%q, %v) = %v, want %v", tc.cmd, tc.rest, got, tc.ok)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"check"}, &out, &errOut); code != exitUsage {
		t.Fatalf("want exit %d, got %d", exitUsage, code)
	}
	if !bytes.Contains(errOut.Bytes(), []byte("usage: domainctl")) {
		t.Fatalf("usage not printed: %q", errOut.String())
	}
	if code := run([]string{"-bogus"}, &out, &errOut); code != exitUsage {
		t.Fatalf("want exit %d for bad flag, got %d", exitUsage, code)
	}
}
