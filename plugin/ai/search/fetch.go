package search

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hrygo/cogniflow/plugin/ai/timeout"
)

// maxPageTextRunes caps the body text handed to the model.
const maxPageTextRunes = 3000

// Page is the readable content of a fetched web page.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
	// Fetched is false when the page was inferred from the URL alone.
	Fetched bool
}

// PageFetcher loads web pages for URL intake.
type PageFetcher struct {
	httpClient *http.Client
}

// NewPageFetcher creates a PageFetcher.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		httpClient: &http.Client{Timeout: timeout.PageFetchTimeout},
	}
}

// Fetch downloads rawURL and extracts its title, description and body text.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create page request")
	}
	req.Header.Set("User-Agent", "CogniFlow/1.0 (+page-summary)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("fetch page: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && !strings.Contains(mediaType, "html") {
			return nil, errors.Errorf("fetch page: unsupported content type %s", mediaType)
		}
	}

	page, err := ParseHTML(io.LimitReader(resp.Body, timeout.MaxPageBytes))
	if err != nil {
		return nil, err
	}
	page.URL = rawURL
	page.Fetched = true
	return page, nil
}

// ParseHTML extracts the title, meta description and visible text of a
// document.
func ParseHTML(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	page := &Page{}
	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
				return
			case atom.Title:
				if page.Title == "" && n.FirstChild != nil {
					page.Title = collapse(n.FirstChild.Data)
				}
				return
			case atom.Meta:
				name := strings.ToLower(attr(n, "name") + attr(n, "property"))
				if page.Description == "" && strings.Contains(name, "description") {
					page.Description = collapse(attr(n, "content"))
				}
				if page.Title == "" && name == "og:title" {
					page.Title = collapse(attr(n, "content"))
				}
			}
		}
		if n.Type == html.TextNode {
			if s := collapse(n.Data); s != "" {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	page.Text = truncateRunes(text.String(), maxPageTextRunes)
	return page, nil
}

// InferFromURL builds page metadata from the URL itself, for when the page
// cannot be fetched.
func InferFromURL(rawURL string) *Page {
	page := &Page{URL: rawURL}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		page.Title = rawURL
		return page
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	segment := path.Base(strings.TrimRight(u.Path, "/"))
	if segment == "." || segment == "/" || segment == "" {
		page.Title = host
		return page
	}
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	segment = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(segment)
	page.Title = collapse(segment) + " - " + host
	return page
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
