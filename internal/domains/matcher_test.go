package domains

import "testing"

func TestAuthorized_ExactAndSubdomain(t *testing.T) {
	m := Matcher{}

	cases := []struct {
		origin    string
		allowList string
		want      bool
	}{
		{"https://example.com", "example.com", true},
		{"https://app.example.com", "example.com", true},
		{"https://example.com:8443", "example.com", true},
		{"https://notexample.com", "example.com", false},
		{"https://example.org", "example.com", false},
		{"https://evil.com/example.com", "example.com", false},
	}
	for _, tc := range cases {
		if got := m.Authorized(tc.origin, tc.allowList); got != tc.want {
			t.Errorf("Authorized(%q, %q) = %v, want %v", tc.origin, tc.allowList, got, tc.want)
		}
	}
}

func TestAuthorized_PrefixWildcard(t *testing.T) {
	m := Matcher{}

	cases := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"sub.example.com", true},
		{"a.b.example.com", true},
		{"notexample.com", false},
		{"example.org", false},
	}
	for _, tc := range cases {
		if got := m.Authorized("https://"+tc.host, "*.example.com"); got != tc.want {
			t.Errorf("host %q vs *.example.com = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestAuthorized_PrefixAndSuffixWildcard(t *testing.T) {
	m := Matcher{}

	cases := []struct {
		host string
		want bool
	}{
		{"sub.example.org", true},
		{"example.io", true},
		{"example.co.uk", false}, // two-label TLD not matched
		{"a.b.example.io", false},
		{"notexample.io", false},
	}
	for _, tc := range cases {
		if got := m.Authorized("https://"+tc.host, "*.example.*"); got != tc.want {
			t.Errorf("host %q vs *.example.* = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestAuthorized_UnsupportedWildcardShapes(t *testing.T) {
	m := Matcher{}

	for _, pattern := range []string{"ex*mple.com", "example.*", "*", "*.*"} {
		if m.Authorized("https://example.com", pattern) {
			t.Errorf("pattern %q should not match", pattern)
		}
	}
}

func TestAuthorized_MultiDomainList(t *testing.T) {
	m := Matcher{}
	allowList := "a.com|||*.b.com"

	if !m.Authorized("https://a.com", allowList) {
		t.Fatalf("expected a.com authorized")
	}
	if !m.Authorized("https://x.b.com", allowList) {
		t.Fatalf("expected x.b.com authorized")
	}
	if m.Authorized("https://c.com", allowList) {
		t.Fatalf("expected c.com denied")
	}
}

func TestAuthorized_EmptyListDeniesAll(t *testing.T) {
	m := Matcher{}

	for _, allowList := range []string{"", "   ", "|||", " ||| "} {
		if m.Authorized("https://example.com", allowList) {
			t.Errorf("allow list %q should deny", allowList)
		}
	}
}

func TestAuthorized_URLPattern(t *testing.T) {
	m := Matcher{}

	if !m.Authorized("https://example.com", "https://example.com") {
		t.Fatalf("expected URL pattern to match by hostname")
	}
	if !m.Authorized("https://app.example.com", "https://example.com/widget") {
		t.Fatalf("expected URL pattern subdomain match")
	}
}

func TestAuthorized_Localhost(t *testing.T) {
	dev := Matcher{Production: false}
	prod := Matcher{Production: true}

	if !dev.Authorized("http://localhost:3000", "localhost") {
		t.Fatalf("expected localhost authorized")
	}
	if !prod.Authorized("http://localhost:3000", "localhost") {
		t.Fatalf("expected localhost authorized even in production")
	}

	for _, host := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.5", "192.168.1.20"} {
		if !dev.Authorized("http://"+host+":3000", "localhost") {
			t.Errorf("expected %s authorized outside production", host)
		}
		if prod.Authorized("http://"+host+":3000", "localhost") {
			t.Errorf("expected %s denied in production", host)
		}
	}

	// Public IPs never ride the localhost exception.
	if dev.Authorized("http://8.8.8.8", "localhost") {
		t.Fatalf("expected public IP denied")
	}
	// 172.32.x is outside 172.16.0.0/12.
	if dev.Authorized("http://172.32.0.1", "localhost") {
		t.Fatalf("expected 172.32.0.1 denied")
	}
}

func TestAuthorized_DevDomains(t *testing.T) {
	m := Matcher{DevDomains: []string{"*.ngrok.io", "vercel.app"}}

	if !m.Authorized("https://tunnel.ngrok.io", "example.com") {
		t.Fatalf("expected dev domain wildcard match")
	}
	if !m.Authorized("https://ngrok.io", "example.com") {
		t.Fatalf("expected dev domain base match")
	}
	if !m.Authorized("https://my-app.vercel.app", "example.com") {
		t.Fatalf("expected dev domain containment match")
	}
	if m.Authorized("https://ngrok.io.evil.com", "example.com") {
		t.Fatalf("expected non-dev host denied")
	}

	// Dev domains never rescue an empty allow list.
	if m.Authorized("https://tunnel.ngrok.io", "") {
		t.Fatalf("expected empty allow list to deny")
	}
}

func TestAuthorized_MalformedOrigin(t *testing.T) {
	m := Matcher{}

	for _, origin := range []string{"", "not a url", "%%%", "example.com"} {
		if m.Authorized(origin, "example.com") {
			t.Errorf("origin %q should deny", origin)
		}
	}
}

func TestAuthorized_Idempotent(t *testing.T) {
	m := Matcher{DevDomains: []string{"*.ngrok.io"}}

	first := m.Authorized("https://x.b.com", "a.com|||*.b.com")
	second := m.Authorized("https://x.b.com", "a.com|||*.b.com")
	if first != second {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
}

func TestParsePatterns(t *testing.T) {
	got := ParsePatterns(" a.com ||| *.b.com |||  ")
	if len(got) != 2 || got[0] != "a.com" || got[1] != "*.b.com" {
		t.Fatalf("unexpected patterns: %v", got)
	}
	if len(ParsePatterns("")) != 0 {
		t.Fatalf("expected no patterns for empty string")
	}
}
