package wikipedia

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"autodeck/internal/model"
	"autodeck/internal/research"
)

const (
	sourceName     = "wikipedia"
	defaultTimeout = 15 * time.Second
	userAgent      = "autodeck/1.0 (presentation generator)"
	baseScore      = 1.0
)

var _ research.Source = (*Client)(nil)

var wikis = []language.Tag{
	language.English, language.French, language.German, language.Spanish,
	language.Italian, language.Portuguese, language.Dutch, language.Polish,
	language.Russian, language.Ukrainian, language.Japanese, language.Chinese,
	language.Korean, language.Arabic, language.Swedish, language.Turkish,
	language.Lithuanian, language.Czech, language.Hindi, language.Indonesian,
}

var markupRegex = regexp.MustCompile(`<[^>]+>`)

type Client struct {
	http    *resty.Client
	baseURL string
}

type Options struct {
	Timeout time.Duration
	// BaseURL replaces https://<lang>.wikipedia.org. Used in tests.
	BaseURL string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetHeader("User-Agent", userAgent).
			SetTimeout(opts.Timeout),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

func (c *Client) Name() string {
	return sourceName
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (c *Client) Search(ctx context.Context, query, lang string, limit int) ([]model.ResearchItem, error) {
	base := c.endpoint(lang)

	var found searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":   "query",
			"list":     "search",
			"srsearch": query,
			"srlimit":  fmt.Sprint(limit),
			"format":   "json",
		}).
		SetResult(&found).
		Get(base + "/w/api.php")
	if err != nil {
		return nil, fmt.Errorf("search wikipedia: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search wikipedia: status %d: %s", resp.StatusCode(), resp.String())
	}

	items := make([]model.ResearchItem, 0, len(found.Query.Search))
	for rank, hit := range found.Query.Search {
		if ctx.Err() != nil {
			break
		}
		item := model.ResearchItem{
			Source:  sourceName,
			Title:   hit.Title,
			URL:     base + "/wiki/" + url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_")),
			Snippet: cleanSnippet(hit.Snippet),
			Score:   research.RankScore(baseScore, rank),
		}
		if summary, err := c.summary(ctx, base, hit.Title); err == nil && summary.Extract != "" {
			item.Snippet = summary.Extract
			if summary.ContentURLs.Desktop.Page != "" {
				item.URL = summary.ContentURLs.Desktop.Page
			}
		}
		if item.Snippet != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *Client) summary(ctx context.Context, base, title string) (*summaryResponse, error) {
	var summary summaryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&summary).
		Get(base + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	if err != nil {
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch summary: status %d", resp.StatusCode())
	}
	return &summary, nil
}

func (c *Client) endpoint(lang string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s.wikipedia.org", Subdomain(lang))
}

// Subdomain maps a language name ("French") or tag ("fr-CA") to its wiki
// subdomain. Unknown languages use English.
func Subdomain(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en"
	}

	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		return base.String()
	}

	names := display.English.Languages()
	for _, tag := range wikis {
		if strings.EqualFold(names.Name(tag), lang) || strings.EqualFold(display.Self.Name(tag), lang) {
			base, _ := tag.Base()
			return base.String()
		}
	}
	return "en"
}

func cleanSnippet(s string) string {
	s = markupRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
