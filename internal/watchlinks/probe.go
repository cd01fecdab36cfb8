package watchlinks

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Probe outcomes, used as metric labels
const (
	ProbeOK        = "ok"
	ProbeBadURL    = "bad_url"
	ProbeBadStatus = "bad_status"
	ProbeNotHTML   = "not_html"
	ProbeError     = "error"
)

// Link is a page that answered like a working site
type Link struct {
	URL    string // final URL after redirects
	Domain string // lowercase host of URL
}

// Prober checks whether a candidate page is alive
type Prober struct {
	client *http.Client
}

// NewProbeClient returns the HTTP client used for probing: bounded by
// timeout, no proxy from the environment, optional TLS verification.
func NewProbeClient(timeout time.Duration, insecureTLS bool, maxConns int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.MaxConnsPerHost = maxConns
	if insecureTLS {
		// mirror sites routinely run on broken certificates
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewProber wraps an HTTP client
func NewProber(client *http.Client) *Prober {
	return &Prober{client: client}
}

// Probe fetches rawURL following redirects. The page counts as working when
// the status is 2xx/3xx, the final URL has a host and the body is HTML.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*Link, string) {
	if hostOf(rawURL) == "" {
		return nil, ProbeBadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ProbeBadURL
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ProbeError
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, ProbeBadStatus
	}

	final := resp.Request.URL.String()
	finalHost := hostOf(final)
	if finalHost == "" {
		return nil, ProbeBadURL
	}

	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return nil, ProbeNotHTML
	}

	return &Link{URL: final, Domain: finalHost}, ProbeOK
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
