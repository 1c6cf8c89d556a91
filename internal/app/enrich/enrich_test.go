package enrich

import "testing"

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		hint string
		want string
	}{
		{"mobile", "mobile"},
		{"tablet", "tablet"},
		{"", "desktop"},
		{"bot", "other"},
		{"smarttv", "other"},
	}
	for _, tc := range cases {
		if got := ClassifyDevice(tc.hint); got != tc.want {
			t.Errorf("ClassifyDevice(%q) = %q, want %q", tc.hint, got, tc.want)
		}
	}
}

func TestDetectBot(t *testing.T) {
	cases := []struct {
		ua   string
		want bool
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"Mozilla/5.0 (compatible; Baiduspider/2.0)", true},
		{"facebookexternalhit/1.1", true},
		{"WhatsApp/2.23.20", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DetectBot(tc.ua); got != tc.want {
			t.Errorf("DetectBot(%q) = %v, want %v", tc.ua, got, tc.want)
		}
	}
}

func TestExtractUTM(t *testing.T) {
	utm := ExtractUTM("https://news.example.com/story?utm_source=newsletter&utm_medium=email&utm_campaign=launch")
	if utm.Source != "newsletter" || utm.Medium != "email" || utm.Campaign != "launch" {
		t.Fatalf("unexpected utm tuple: %+v", utm)
	}
	if utm.Term != "" || utm.Content != "" {
		t.Fatalf("expected empty term/content, got %+v", utm)
	}

	if got := ExtractUTM(""); got != (UTM{}) {
		t.Fatalf("expected zero tuple for empty referrer, got %+v", got)
	}
	if got := ExtractUTM("not a url"); got != (UTM{}) {
		t.Fatalf("expected zero tuple for garbage referrer, got %+v", got)
	}
}

func TestReferrerDomain(t *testing.T) {
	if got := ReferrerDomain("https://t.co/abc123"); got != "t.co" {
		t.Fatalf("expected t.co, got %q", got)
	}
	if got := ReferrerDomain(""); got != "" {
		t.Fatalf("expected empty domain, got %q", got)
	}
	if got := ReferrerDomain("https://sub.example.com:8443/path"); got != "sub.example.com" {
		t.Fatalf("expected host without port, got %q", got)
	}
}

func TestFromRequest_DesktopBrowser(t *testing.T) {
	sig := FromRequest(RawRequest{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Referrer:  "https://www.google.com/?utm_source=serp",
		IP:        "203.0.113.7",
		Language:  "en-US,en;q=0.9",
		Protocol:  "https",
	})

	if sig.Device != "desktop" {
		t.Errorf("expected desktop, got %q", sig.Device)
	}
	if sig.BrowserName == "" || sig.OSName == "" {
		t.Errorf("expected parsed browser/os, got %+v", sig)
	}
	if sig.IsBot {
		t.Error("desktop Chrome must not classify as bot")
	}
	if sig.ReferrerDomain != "www.google.com" {
		t.Errorf("unexpected referrer domain %q", sig.ReferrerDomain)
	}
	if sig.UTM.Source != "serp" {
		t.Errorf("unexpected utm source %q", sig.UTM.Source)
	}
	if sig.Language != "en-US" {
		t.Errorf("expected leading language tag, got %q", sig.Language)
	}
}

func TestFromRequest_MobileUA(t *testing.T) {
	sig := FromRequest(RawRequest{
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	})
	if sig.Device != "mobile" {
		t.Fatalf("expected mobile, got %q", sig.Device)
	}
}

func TestFromRequest_BotUA(t *testing.T) {
	sig := FromRequest(RawRequest{
		UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	})
	if !sig.IsBot {
		t.Fatal("expected the crawler to classify as bot")
	}
	if sig.Device != "desktop" {
		t.Fatalf("bots carry no device hint and default to desktop, got %q", sig.Device)
	}
}

func TestFromRequest_EmptyUA(t *testing.T) {
	sig := FromRequest(RawRequest{})
	if sig.Device != "desktop" {
		t.Fatalf("absent hint must default to desktop, got %q", sig.Device)
	}
	if sig.IsBot {
		t.Fatal("empty agent is not a bot")
	}
}
