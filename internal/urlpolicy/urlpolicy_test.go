package urlpolicy

import "testing"

func TestValidateRejectsDisallowedScheme(t *testing.T) {
	result := Validate("ftp://example.com/file", DefaultConfig())
	if result.Allowed {
		t.Fatal("expected ftp scheme to be rejected")
	}
}

func TestValidateAllowsPublicHTTPS(t *testing.T) {
	result := Validate("https://93.184.216.34/", DefaultConfig())
	if !result.Allowed {
		t.Fatalf("expected a public IP literal to be allowed, got %q", result.Reason)
	}
}

func TestValidateBlocksLocalhost(t *testing.T) {
	result := Validate("http://localhost:8080/", DefaultConfig())
	if result.Allowed {
		t.Fatal("expected localhost to be blocked")
	}
}

func TestValidateBlocksDotLocal(t *testing.T) {
	result := Validate("http://printer.local/", DefaultConfig())
	if result.Allowed {
		t.Fatal("expected .local hostnames to be blocked")
	}
}

func TestValidateBlocksPrivateIPLiteral(t *testing.T) {
	cases := []string{
		"http://127.0.0.1/",
		"http://10.0.0.5/",
		"http://192.168.1.1/",
		"http://169.254.169.254/",
	}
	for _, u := range cases {
		if result := Validate(u, DefaultConfig()); result.Allowed {
			t.Errorf("expected %s to be blocked as a private IP, got allowed", u)
		}
	}
}

func TestValidateSkipsPrivateIPCheckWhenDisabled(t *testing.T) {
	cfg := Config{AllowedSchemes: []string{"http"}, BlockPrivateIPs: false}
	result := Validate("http://127.0.0.1/", cfg)
	if !result.Allowed {
		t.Fatalf("expected private IP to be allowed when BlockPrivateIPs is false, got %q", result.Reason)
	}
}

func TestValidateRejectsUnparseableURL(t *testing.T) {
	result := Validate("://not-a-url", DefaultConfig())
	if result.Allowed {
		t.Fatal("expected an unparseable URL to be rejected")
	}
}
