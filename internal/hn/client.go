package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Makepad-fr/scaffold/internal/model"
)

// DefaultBaseURL is the public Hacker News Firebase API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// ErrNotFound is returned for items the API answers with null, such as deleted
// or unknown ids.
var ErrNotFound = errors.New("item not found")

// Fetcher performs the two outbound reads of the story client.
type Fetcher interface {
	StoryIDs(ctx context.Context, c model.Category) ([]int, error)
	Story(ctx context.Context, id int) (model.Story, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Client reads the Hacker News JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client rooted at baseURL. A nil httpClient means
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// StoryIDs fetches <base>/<category>stories.json.
func (c *Client) StoryIDs(ctx context.Context, cat model.Category) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, c.baseURL+"/"+string(cat)+"stories.json", &ids); err != nil {
		return nil, fmt.Errorf("story ids %s: %w", cat, err)
	}
	return ids, nil
}

// Story fetches <base>/item/<id>.json.
func (c *Client) Story(ctx context.Context, id int) (model.Story, error) {
	var s model.Story
	if err := c.getJSON(ctx, c.baseURL+"/item/"+strconv.Itoa(id)+".json", &s); err != nil {
		return model.Story{}, fmt.Errorf("story %d: %w", id, err)
	}
	switch {
	case s.ID == 0:
		return model.Story{}, fmt.Errorf("story %d: %w", id, ErrNotFound)
	case s.ID != id:
		return model.Story{}, fmt.Errorf("story %d: got item %d", id, s.ID)
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
