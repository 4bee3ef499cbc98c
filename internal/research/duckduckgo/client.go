package duckduckgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"autodeck/internal/model"
	"autodeck/internal/research"
)

const (
	sourceName      = "duckduckgo"
	defaultAPIURL   = "https://api.duckduckgo.com/"
	defaultHTMLURL  = "https://html.duckduckgo.com/html/"
	defaultTimeout  = 15 * time.Second
	userAgent       = "Mozilla/5.0 (compatible; autodeck/1.0)"
	abstractScore   = 0.9
	webResultScore  = 0.8
	relatedTopicMax = 0.6
)

var _ research.Source = (*Client)(nil)

type Client struct {
	http    *resty.Client
	apiURL  string
	htmlURL string
}

type Options struct {
	Timeout time.Duration
	APIURL  string
	HTMLURL string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.HTMLURL == "" {
		opts.HTMLURL = defaultHTMLURL
	}
	return &Client{
		http: resty.New().
			SetHeader("User-Agent", userAgent).
			SetTimeout(opts.Timeout),
		apiURL:  opts.APIURL,
		htmlURL: opts.HTMLURL,
	}
}

func (c *Client) Name() string {
	return sourceName
}

type instantAnswer struct {
	Heading        string  `json:"Heading"`
	AbstractText   string  `json:"AbstractText"`
	AbstractURL    string  `json:"AbstractURL"`
	AbstractSource string  `json:"AbstractSource"`
	RelatedTopics  []topic `json:"RelatedTopics"`
}

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Name     string  `json:"Name"`
	Topics   []topic `json:"Topics"`
}

// Search combines the instant answer API with the HTML result page. Either
// half may fail on its own; the call fails only when both do.
func (c *Client) Search(ctx context.Context, query, _ string, limit int) ([]model.ResearchItem, error) {
	answers, apiErr := c.instantAnswers(ctx, query, limit)
	web, htmlErr := c.webResults(ctx, query, limit)
	if apiErr != nil && htmlErr != nil {
		return nil, errors.Join(apiErr, htmlErr)
	}

	items := make([]model.ResearchItem, 0, len(answers)+len(web))
	items = append(items, answers...)
	items = append(items, web...)
	if len(items) > limit*2 {
		items = items[:limit*2]
	}
	return items, nil
}

func (c *Client) instantAnswers(ctx context.Context, query string, limit int) ([]model.ResearchItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		Get(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("query instant answers: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("query instant answers: status %d", resp.StatusCode())
	}

	var ia instantAnswer
	if err := json.Unmarshal(resp.Body(), &ia); err != nil {
		return nil, fmt.Errorf("parse instant answers: %w", err)
	}

	var items []model.ResearchItem
	if ia.AbstractText != "" {
		title := ia.Heading
		if title == "" {
			title = ia.AbstractSource
		}
		items = append(items, model.ResearchItem{
			Source:  sourceName,
			Title:   title,
			URL:     ia.AbstractURL,
			Snippet: ia.AbstractText,
			Score:   abstractScore,
		})
	}

	for rank, t := range flattenTopics(ia.RelatedTopics) {
		if len(items) >= limit {
			break
		}
		if t.Text == "" {
			continue
		}
		items = append(items, model.ResearchItem{
			Source:  sourceName,
			Title:   headline(t.Text),
			URL:     t.FirstURL,
			Snippet: t.Text,
			Score:   research.RankScore(relatedTopicMax, rank),
		})
	}
	return items, nil
}

func flattenTopics(topics []topic) []topic {
	var out []topic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c *Client) webResults(ctx context.Context, query string, limit int) ([]model.ResearchItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(c.htmlURL)
	if err != nil {
		return nil, fmt.Errorf("query web results: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("query web results: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse web results: %w", err)
	}

	var items []model.ResearchItem
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		link := s.Find(".result__a").First()
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())
		if snippet == "" {
			return true
		}
		href, _ := link.Attr("href")
		items = append(items, model.ResearchItem{
			Source:  sourceName,
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveRedirect(href),
			Snippet: snippet,
			Score:   research.RankScore(webResultScore, len(items)),
		})
		return true
	})
	return items, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= tracking links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func headline(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return text
}
