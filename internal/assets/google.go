package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"autodeck/internal/metrics"
	"autodeck/internal/model"
	"autodeck/pkg/httputil"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultCacheSize  = 128
	searchResults     = 5
	minImageWidth     = 400
	minImageHeight    = 300
	browserUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxDownloadTrials = 3
	maxImageBytes     = 10 << 20
)

var errNoImage = errors.New("no usable image")

var blockedDomains = []string{
	"lookaside.instagram.com",
	"instagram.com",
	"fbcdn.net",
	"pinterest.com",
	"pinimg.com",
	"tiktok.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"shutterstock.com",
	"gettyimages.com",
	"alamy.com",
}

type GoogleOptions struct {
	APIKey        string
	EngineID      string
	Timeout       time.Duration
	Retries       int
	CacheSize     int
	MinImageBytes int
	// Endpoint overrides the Custom Search endpoint in tests.
	Endpoint string
}

// Google searches images with the Custom Search JSON API and downloads the
// first candidate that validates.
type Google struct {
	svc      *customsearch.Service
	engineID string
	fetcher  *httputil.RetryClient
	cache    *lru.Cache
	minBytes int
}

var _ Resolver = (*Google)(nil)

func NewGoogle(ctx context.Context, opts GoogleOptions) (*Google, error) {
	if opts.APIKey == "" || opts.EngineID == "" {
		return nil, model.NewConfigError("assets", "GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_ENGINE_ID are required for image search")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.MinImageBytes <= 0 {
		opts.MinImageBytes = DefaultMinImageBytes
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}

	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}

	retries := opts.Retries
	if retries == 0 {
		retries = -1
	}

	return &Google{
		svc:      svc,
		engineID: opts.EngineID,
		fetcher: httputil.NewRetryClient(&http.Client{Transport: userAgentTransport{}}, httputil.RetryConfig{
			MaxRetries:   retries,
			Timeout:      opts.Timeout,
			MaxBodyBytes: maxImageBytes,
		}),
		cache:    cache,
		minBytes: opts.MinImageBytes,
	}, nil
}

func (g *Google) Resolve(ctx context.Context, query string) (*model.Asset, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.AssetError{Query: query, Err: errors.New("empty query")}
	}
	if v, ok := g.cache.Get(query); ok {
		metrics.RecordAsset("cached")
		return v.(*model.Asset), nil
	}

	asset, err := g.resolve(ctx, query)
	if err != nil {
		metrics.RecordAsset("failed")
		return nil, &model.AssetError{Query: query, Err: err}
	}

	metrics.RecordAsset("resolved")
	g.cache.Add(query, asset)
	return asset, nil
}

func (g *Google) resolve(ctx context.Context, query string) (*model.Asset, error) {
	links, err := g.search(ctx, query)
	if err != nil {
		return nil, err
	}

	tried := 0
	for _, link := range links {
		if tried == maxDownloadTrials {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried++

		data, _, err := g.fetcher.Fetch(ctx, link)
		if err != nil {
			slog.Debug("Image download failed", "url", link, "error", err)
			continue
		}
		mime, ok := isValidImage(data, g.minBytes)
		if !ok {
			slog.Debug("Image rejected", "url", link, "bytes", len(data))
			continue
		}
		return &model.Asset{Query: query, Data: data, MIME: mime}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errNoImage
}

func (g *Google) search(ctx context.Context, query string) ([]string, error) {
	resp, err := g.svc.Cse.List().
		Cx(g.engineID).
		Q(query).
		SearchType("image").
		Num(searchResults).
		Safe("active").
		ImgType("photo").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	return filterLinks(resp.Items), nil
}

// filterLinks drops blocked hosts and images known to be too small.
// Items without reported dimensions are kept.
func filterLinks(items []*customsearch.Result) []string {
	var links []string
	for _, item := range items {
		if item == nil || item.Link == "" || isBlockedDomain(item.Link) {
			continue
		}
		if img := item.Image; img != nil && img.Width > 0 && img.Height > 0 {
			if img.Width < minImageWidth || img.Height < minImageHeight {
				continue
			}
		}
		links = append(links, item.Link)
	}
	return links
}

func isBlockedDomain(imageURL string) bool {
	lowerURL := strings.ToLower(imageURL)
	for _, domain := range blockedDomains {
		if strings.Contains(lowerURL, domain) {
			return true
		}
	}
	return false
}

type userAgentTransport struct{}

func (userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", browserUserAgent)
	return http.DefaultTransport.RoundTrip(req)
}
