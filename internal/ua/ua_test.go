package ua

import "testing"

func TestParseDesktopChrome(t *testing.T) {
	raw := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.60 Safari/537.36"
	info := Parse(raw)
	if info.Device != "Desktop" {
		t.Fatalf("device = %q", info.Device)
	}
	if info.IsBot {
		t.Fatal("chrome flagged as bot")
	}
	if again := Parse(raw); again != info {
		t.Fatalf("memoised result differs: %+v vs %+v", again, info)
	}
}

func TestParseBot(t *testing.T) {
	info := Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	if !info.IsBot {
		t.Fatal("googlebot not flagged")
	}
}

func TestParseEmpty(t *testing.T) {
	if got := Parse(""); got.Device != "Other" {
		t.Fatalf("device = %q", got.Device)
	}
}
