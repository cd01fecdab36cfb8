// Package watchlinks finds a working "watch online" page for a title: it
// asks a web search engine for candidates and probes them concurrently.
package watchlinks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	DefaultSearchURL     = "https://html.duckduckgo.com/html/"
	DefaultSearchTimeout = 8 * time.Second

	// some engines serve an empty page to clients without a browser UA
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Searcher returns candidate page URLs for a title
type Searcher interface {
	Search(ctx context.Context, title string, max int) ([]string, error)
}

// SearchQuery builds the engine query for a title
func SearchQuery(title string) string {
	return fmt.Sprintf(`lordfilm "%s" смотреть онлайн бесплатно`, title)
}

// DuckDuckGo scrapes the HTML endpoint of DuckDuckGo
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

// NewSearchClient returns a client for the search engine. Unlike the probe
// client it always verifies certificates.
func NewSearchClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewDuckDuckGo creates a searcher. Empty endpoint means DefaultSearchURL,
// nil client means NewSearchClient(DefaultSearchTimeout).
func NewDuckDuckGo(client *http.Client, endpoint string, logger *zap.Logger) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultSearchURL
	}
	if client == nil {
		client = NewSearchClient(DefaultSearchTimeout)
	}
	return &DuckDuckGo{client: client, endpoint: endpoint, logger: logger.Named("ddg")}
}

// Search returns at most max http(s) result URLs in engine order
func (d *DuckDuckGo) Search(ctx context.Context, title string, max int) ([]string, error) {
	form := url.Values{"q": {SearchQuery(title)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: status %d", resp.StatusCode)
	}

	urls, err := ParseResults(resp.Body)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	d.logger.Debug("search candidates", zap.String("title", title), zap.Strings("urls", urls))
	return urls, nil
}

// ParseResults extracts result links from a DuckDuckGo HTML page. Only
// http and https targets are returned.
func ParseResults(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			if u := resultTarget(attr(n, "href")); u != "" {
				out = append(out, u)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

// resultTarget unwraps the /l/?uddg= redirect DuckDuckGo puts around results
func resultTarget(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Path, "/l/") {
		href = target
	}

	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
