// Package persist talks to the story backend: full-content chapter
// saves, candidate content fetches, and chapter generation polling. It
// is a plain HTTP collaborator; the editing engine treats everything it
// returns as untrusted candidate input.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the story API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ChapterSnapshot is the full-content overwrite payload. The endpoint
// has no partial-write or merge support.
type ChapterSnapshot struct {
	ChapterID string `json:"chapter_id"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// SaveChapter overwrites the chapter's stored content.
func (c *Client) SaveChapter(ctx context.Context, snap ChapterSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/chapters/"+snap.ChapterID+"/content", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("save chapter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("save chapter %s: status %d: %s", snap.ChapterID, resp.StatusCode, string(respBody))
	}
	return nil
}

type chapterResponse struct {
	ChapterID string `json:"chapter_id"`
	Content   string `json:"content"`
	Ready     bool   `json:"ready"`
}

// FetchChapter returns the chapter's current stored content. Callers
// treat it purely as a candidate replacement.
func (c *Client) FetchChapter(ctx context.Context, chapterID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chapters/"+chapterID+"/content", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch chapter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("fetch chapter %s: status %d: %s", chapterID, resp.StatusCode, string(respBody))
	}
	var out chapterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chapter: %w", err)
	}
	return out.Content, nil
}

// RequestGeneration asks the backend to (re)generate a chapter. The
// artifact appears asynchronously; poll with AwaitGenerated.
func (c *Client) RequestGeneration(ctx context.Context, storyID string, chapter int) error {
	url := fmt.Sprintf("%s/stories/%s/chapters/%d/generate", c.baseURL, storyID, chapter)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request generation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("request generation: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// fetchGenerated probes for the generated artifact once.
func (c *Client) fetchGenerated(ctx context.Context, storyID string, chapter int) (string, bool, error) {
	url := fmt.Sprintf("%s/stories/%s/chapters/%d/generated", c.baseURL, storyID, chapter)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch generated: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil // not ready yet
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", false, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", false, fmt.Errorf("fetch generated: status %d: %s", resp.StatusCode, string(respBody))
	}
	var out chapterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode generated: %w", err)
	}
	if !out.Ready && out.Content == "" {
		return "", false, nil
	}
	return out.Content, true, nil
}

// AwaitGenerated polls for the server-side generation artifact under
// the given policy and returns its content.
func (c *Client) AwaitGenerated(ctx context.Context, storyID string, chapter int, policy RetryPolicy) (string, error) {
	var content string
	err := policy.Run(ctx, func(ctx context.Context) (bool, error) {
		got, ready, err := c.fetchGenerated(ctx, storyID, chapter)
		if err != nil {
			return false, err
		}
		if !ready {
			return false, nil
		}
		content = got
		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("await generated chapter: %w", err)
	}
	return content, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
