package fingerprint

import (
	"net/http"
	"testing"
)

func TestTransportProfiles(t *testing.T) {
	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileSafari} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p)
			if err != nil {
				t.Fatalf("Transport(%q): %v", p, err)
			}
			tr, ok := rt.(*http.Transport)
			if !ok {
				t.Fatalf("Transport(%q) returned %T", p, rt)
			}
			if tr.DialTLSContext == nil {
				t.Error("impersonating transport should install a TLS dialer")
			}
		})
	}
}

func TestTransportGoProfile(t *testing.T) {
	for _, p := range []Profile{ProfileGo, ""} {
		rt, err := Transport(p)
		if err != nil {
			t.Fatalf("Transport(%q): %v", p, err)
		}
		tr, ok := rt.(*http.Transport)
		if !ok {
			t.Fatalf("Transport(%q) returned %T", p, rt)
		}
		if tr.DialTLSContext != nil {
			t.Errorf("profile %q should not override TLS dialing", p)
		}
	}
}

func TestTransportUnknownProfile(t *testing.T) {
	if _, err := Transport("netscape"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestTransportIsIndependent(t *testing.T) {
	first, err := Transport(ProfileChrome)
	if err != nil {
		t.Fatalf("Transport: %v", err)
	}
	second, err := Transport(ProfileGo)
	if err != nil {
		t.Fatalf("Transport: %v", err)
	}
	if first == second {
		t.Error("each call should return its own transport")
	}
	if second.(*http.Transport).DialTLSContext != nil {
		t.Error("go profile transport inherited the impersonating dialer")
	}
}
