package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello fingerprint to present during handshakes.
// Search engines treat the default Go fingerprint as automation, so scraping
// providers impersonate a browser instead.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go" // standard library TLS, no impersonation
)

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("fingerprint: unknown profile %q", p)
	}
}

// Transport returns an http.RoundTripper whose TLS handshakes present the
// given profile. ProfileGo returns a plain cloned default transport. Proxies
// are taken from the environment as usual.
func Transport(p Profile) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	if p == ProfileGo || p == "" {
		return base, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	// Dial TCP with the base transport's dialer, then run the uTLS
	// handshake in place of crypto/tls.
	base.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := base.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uconn := utls.UClient(conn, &utls.Config{ServerName: host}, id)
		if err := uconn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: handshake as %q: %w", p, err)
		}
		return uconn, nil
	}

	return base, nil
}
