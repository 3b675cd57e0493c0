package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/ports"
)

const defaultPageLimit = 10

// Error is a typed fetch failure carrying the platform's response.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("source api returned %d: %s", e.StatusCode, e.Body)
}

// Client consumes the publishing platform's posts endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ ports.IssueSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a sane timeout.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{baseURL: baseURL, client: client}
}

// post is the platform's wire representation of one issue.
type post struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	PublishDate  int64    `json:"publish_date"`
	ThumbnailURL string   `json:"thumbnail_url"`
	WebURL       string   `json:"web_url"`
	ContentTags  []string `json:"content_tags"`
	Content      struct {
		Free struct {
			Web string `json:"web"`
		} `json:"free"`
	} `json:"content"`
}

type postPage struct {
	Data         []post `json:"data"`
	TotalResults int    `json:"total_results"`
}

// FetchLatest returns the publication's most recent confirmed issues,
// newest first, with web content expanded.
func (c *Client) FetchLatest(ctx context.Context, pub domain.Publication, limit int) ([]domain.RawIssue, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}

	endpoint, err := c.buildPostsURL(pub.ID, limit)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+pub.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsletterIngest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request posts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page postPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode posts page: %w", err)
	}

	issues := make([]domain.RawIssue, 0, len(page.Data))
	for _, p := range page.Data {
		issues = append(issues, domain.RawIssue{
			ExternalID:   p.ID,
			Title:        p.Title,
			Status:       domain.IssueStatus(p.Status),
			PublishedAt:  time.Unix(p.PublishDate, 0).UTC(),
			BodyHTML:     p.Content.Free.Web,
			ThumbnailURL: p.ThumbnailURL,
			SourceURL:    p.WebURL,
			Tags:         p.ContentTags,
		})
	}
	return issues, nil
}

func (c *Client) buildPostsURL(publicationID string, limit int) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/publications/%s/posts", c.baseURL, publicationID))
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", c.baseURL, err)
	}

	query := parsed.Query()
	query.Set("limit", strconv.Itoa(limit))
	query.Set("order_by", "publish_date")
	query.Set("direction", "desc")
	query.Set("status", string(domain.IssueConfirmed))
	query.Add("expand[]", "free_web_content")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
