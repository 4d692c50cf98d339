// Package blockdetect recognizes bot-protection challenge and block
// pages in search engine responses, so a run can abort with a clear
// error instead of parsing an empty document.
package blockdetect

import (
	"bytes"
	"net/http"
	"strings"
)

// Response carries the parts of an HTTP response the detectors examine.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether a response is a block page and names the
// protection vendor or mechanism that produced it.
type Detector func(r Response) (blocked bool, source string)

// DefaultDetectors returns the standard detector list.
func DefaultDetectors() []Detector {
	return []Detector{
		detectRateLimit,
		detectChallenge,
		detectCloudflare,
		detectDataDome,
		detectPerimeterX,
	}
}

// Detect runs the response through the detectors and returns the first
// hit.
func Detect(r Response, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if blocked, source := d(r); blocked {
			return true, source
		}
	}
	return false, ""
}

// detectRateLimit treats hard denial status codes as blocks regardless
// of body content.
func detectRateLimit(r Response) (bool, string) {
	switch r.StatusCode {
	case http.StatusForbidden:
		return true, "forbidden"
	case http.StatusTooManyRequests:
		return true, "rate-limit"
	}
	return false, ""
}

// detectChallenge looks for generic interstitial challenge pages, such
// as DuckDuckGo's anomaly modal or a bare CAPTCHA form.
func detectChallenge(r Response) (bool, string) {
	lower := bytes.ToLower(r.Body)
	if bytes.Contains(lower, []byte("anomaly-modal")) ||
		bytes.Contains(lower, []byte("if this persists, please")) {
		return true, "anomaly-challenge"
	}
	if bytes.Contains(lower, []byte("captcha")) {
		return true, "captcha"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge signatures.
func detectCloudflare(r Response) (bool, string) {
	if r.StatusCode != http.StatusServiceUnavailable && r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Server")), "cloudflare") {
		return true, "cloudflare"
	}
	if bytes.Contains(r.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(r.Body, []byte("cf-turnstile")) ||
		bytes.Contains(r.Body, []byte("Attention Required! | Cloudflare")) {
		return true, "cloudflare"
	}
	return false, ""
}

// detectDataDome looks for DataDome block signatures.
func detectDataDome(r Response) (bool, string) {
	if strings.Contains(strings.ToLower(r.Header.Get("Server")), "datadome") {
		return true, "datadome"
	}
	if r.Header.Get("X-DataDome") != "" || r.Header.Get("X-DataDome-Response") != "" {
		return true, "datadome"
	}
	if bytes.Contains(r.Body, []byte("geo.captcha-delivery.com")) {
		return true, "datadome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(r Response) (bool, string) {
	if r.Header.Get("X-Px-Captcha") != "" {
		return true, "perimeterx"
	}
	if bytes.Contains(r.Body, []byte("client.perimeterx.net")) ||
		bytes.Contains(r.Body, []byte("px-captcha")) ||
		bytes.Contains(r.Body, []byte("_pxBlock")) {
		return true, "perimeterx"
	}
	return false, ""
}
