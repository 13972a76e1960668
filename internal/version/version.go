// Package version checks a corewallet build against its published releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"runtime"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Defaults.
const (
	DefaultBaseURL      = "https://api.github.com"
	DefaultTimeout      = 30 * time.Second
	maxErrorBodySize    = 1024
	maxResponseBodySize = 64 * 1024
)

// Dev is the version string of unstamped builds.
const Dev = "dev"

var validOwnerRepo = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

var commitHash = regexp.MustCompile(`^[0-9a-fA-F]*[a-fA-F][0-9a-fA-F]*$`)

// Release is the part of a GitHub release the checker reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// Info is the result of a release check.
type Info struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	URL     string `json:"url,omitempty"`
	IsNewer bool   `json:"update_available"`
}

// Checker fetches the latest release of one repository.
type Checker struct {
	owner, repo string
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	retry       chain.RetryConfig
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL points the checker at another API root.
func WithBaseURL(url string) Option {
	return func(c *Checker) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.httpClient = client }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg chain.RetryConfig) Option {
	return func(c *Checker) { c.retry = cfg }
}

// NewChecker returns a checker for owner/repo.
func NewChecker(owner, repo string, opts ...Option) (*Checker, error) {
	if !validOwnerRepo.MatchString(owner) || !validOwnerRepo.MatchString(repo) {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"repository": owner + "/" + repo})
	}
	c := &Checker{
		owner:      owner,
		repo:       repo,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  fmt.Sprintf("corewallet (%s/%s)", runtime.GOOS, runtime.GOARCH),
		retry:      chain.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check compares current with the latest published release.
func (c *Checker) Check(ctx context.Context, current string) (*Info, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Current: current,
		Latest:  rel.TagName,
		URL:     rel.HTMLURL,
		IsNewer: IsNewer(current, rel.TagName),
	}, nil
}

// Latest fetches the latest release. Server errors and rate limits are
// retried.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	return chain.Retry(ctx, c.retry, c.fetch)
}

func (c *Checker) fetch(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, cwerr.Wrap(err, "creating release request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured API root
	if err != nil {
		return nil, chain.WrapRetryable(cwerr.Wrap(cwerr.ErrNetworkError, "fetching release: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		failure := cwerr.WithDetails(cwerr.ErrNetworkError, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"body":   strings.TrimSpace(string(body)),
		})
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, chain.WrapRetryable(failure)
		}
		return nil, failure
	}

	var rel Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&rel); err != nil {
		return nil, cwerr.Wrap(cwerr.ErrNetworkError, "decoding release: %v", err)
	}
	if rel.TagName == "" {
		return nil, cwerr.WithDetails(cwerr.ErrNetworkError, map[string]string{"reason": "release has no tag"})
	}
	return &rel, nil
}

// IsDev reports whether v is an unstamped or commit-hash build.
func IsDev(v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(v), "-dirty")
	if v == "" || v == Dev {
		return true
	}
	return len(v) >= 7 && len(v) <= 40 && commitHash.MatchString(v)
}

// Compare orders two version strings. Dev builds sort before every
// release; unparsable strings sort as dev builds.
func Compare(a, b string) int {
	va, aok := parse(a)
	vb, bok := parse(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return va.Core().Compare(vb.Core())
}

// IsNewer reports whether latest is a newer release than current.
func IsNewer(current, latest string) bool {
	return Compare(latest, current) > 0
}

func parse(v string) (*goversion.Version, bool) {
	if IsDev(v) {
		return nil, false
	}
	parsed, err := goversion.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return nil, false
	}
	return parsed, true
}
