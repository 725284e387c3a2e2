package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dtnitsch/docbundle/pkg/fetcher"
)

// API failure kinds.
const (
	KindRateLimited  = "rate_limited"
	KindUnauthorized = "unauthorized"
)

// APIError is a hosting API refusal. It is not retried.
type APIError struct {
	URL        string
	Kind       string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("repository api %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Classify() (string, int) { return e.Kind, e.StatusCode }

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"` // file, dir, symlink, submodule
	URL         string `json:"url"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
}

// Getter is the subset of fetcher.Fetcher the client needs.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*fetcher.Response, error)
}

// Client talks to a GitHub-compatible contents API.
type Client struct {
	getter Getter
	apiURL string
	token  string
}

func NewClient(getter Getter, apiURL, token string) *Client {
	return &Client{
		getter: getter,
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
	}
}

func (c *Client) headers(accept string) map[string]string {
	h := map[string]string{"Accept": accept}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

func (c *Client) get(ctx context.Context, target, accept string) ([]byte, error) {
	resp, err := c.getter.Get(ctx, target, c.headers(accept))
	if err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Kind == fetcher.KindStatus {
			switch fe.StatusCode {
			case http.StatusForbidden, http.StatusTooManyRequests:
				return nil, &APIError{URL: target, Kind: KindRateLimited, StatusCode: fe.StatusCode, Err: err}
			case http.StatusUnauthorized:
				return nil, &APIError{URL: target, Kind: KindUnauthorized, StatusCode: fe.StatusCode, Err: err}
			}
		}
		return nil, err
	}
	return resp.Body, nil
}

// DefaultBranch returns the repository's default branch.
func (c *Client) DefaultBranch(ctx context.Context, ref Reference) (string, error) {
	target := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo))
	body, err := c.get(ctx, target, "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	var repo struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(body, &repo); err != nil {
		return "", fmt.Errorf("error decoding repository %s: %w", ref, err)
	}
	if repo.DefaultBranch == "" {
		return "", fmt.Errorf("repository %s has no default branch", ref)
	}
	return repo.DefaultBranch, nil
}

// ListContents lists one directory ("" is the repository root) at ref.Branch.
func (c *Client) ListContents(ctx context.Context, ref Reference, dir string) ([]Entry, error) {
	target := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), escapePath(dir))
	if ref.Branch != "" {
		target += "?ref=" + url.QueryEscape(ref.Branch)
	}
	body, err := c.get(ctx, target, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("error decoding listing of %q: %w", dir, err)
	}
	return entries, nil
}

// FetchRaw downloads the raw contents of a file entry.
func (c *Client) FetchRaw(ctx context.Context, e Entry) ([]byte, error) {
	target := e.DownloadURL
	if target == "" {
		target = e.URL
	}
	if target == "" {
		return nil, fmt.Errorf("entry %s has no download url", e.Path)
	}
	return c.get(ctx, target, "application/vnd.github.v3.raw")
}

func escapePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
