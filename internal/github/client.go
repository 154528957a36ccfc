// Package github lists the repositories a GitHub account hosts.
//
// The dashboard only needs project names and freshness timestamps, so
// the client calls the public REST listing endpoint unauthenticated.
// Listing failures (network, non-200, malformed payload) are returned
// as errors; the reconciler treats a failed listing as "no data for
// this cycle", never as an empty account.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "gitdrift"
	listTimeout    = 10 * time.Second
)

// RemoteRepo is one hosted repository from the listing endpoint.
type RemoteRepo struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client calls the GitHub REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Tests use
// this to target an httptest server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a listing client. A nil logger discards request
// transcripts.
func NewClient(log *logrus.Logger, opts ...Option) *Client {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: listTimeout},
		baseURL:    defaultBaseURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the public repositories of user, entries without a name
// dropped. One page of up to 100 repositories is requested; accounts
// beyond that report their most recently listed projects.
func (c *Client) List(ctx context.Context, user string) ([]RemoteRepo, error) {
	if user == "" {
		return nil, errors.New("github user is empty")
	}

	url := fmt.Sprintf("%s/users/%s/repos?per_page=100", c.baseURL, user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	c.log.WithField("url", url).Debug("listing hosted repositories")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list repos for %s: %w", user, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing response for %s: %w", user, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list repos for %s: %s: %s", user, resp.Status, snippet(body))
	}

	var payload []RemoteRepo
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode listing for %s: %w", user, err)
	}

	repos := make([]RemoteRepo, 0, len(payload))
	for _, r := range payload {
		if r.Name == "" {
			continue
		}
		repos = append(repos, r)
	}

	c.log.WithFields(logrus.Fields{
		"user":  user,
		"repos": len(repos),
	}).Debug("listing complete")

	return repos, nil
}

// snippet trims a response body for inclusion in an error message.
func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
