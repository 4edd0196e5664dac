package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Pathstore keeps artifacts as nodes in a pathstore key-value service. Each
// node's value carries the artifact body as text together with its content
// type.
type Pathstore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPathstore(baseURL, apiKey string) *Pathstore {
	return &Pathstore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// artifactValue is the node value stored for one artifact.
type artifactValue struct {
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
}

type nodeRequest struct {
	Value  artifactValue `json:"value"`
	Source string        `json:"source,omitempty"`
}

type nodeResponse struct {
	Key   string        `json:"key_path"`
	Value artifactValue `json:"value"`
}

func (c *Pathstore) nodeURL(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	segs := strings.Split(clean, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.baseURL + "/kv/" + strings.Join(segs, "/"), nil
}

func (c *Pathstore) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

func (c *Pathstore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	u, err := c.nodeURL(key)
	if err != nil {
		return err
	}
	body, err := json.Marshal(nodeRequest{
		Value:  artifactValue{ContentType: contentType, Body: string(data)},
		Source: "docdeck",
	})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Pathstore) Get(ctx context.Context, key string) ([]byte, error) {
	u, err := c.nodeURL(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}

	var node nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return []byte(node.Value.Body), nil
}

// List scans the children of the deepest directory in prefix and filters
// them by the remaining partial name.
func (c *Pathstore) List(ctx context.Context, prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i]
	}
	u, err := c.nodeURL(dir)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"/*", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list children %s: status %d: %s", dir, resp.StatusCode, string(respBody))
	}

	var result struct {
		Nodes []nodeResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	var keys []string
	for _, n := range result.Nodes {
		if strings.HasPrefix(n.Key, prefix) {
			keys = append(keys, n.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Pathstore) Delete(ctx context.Context, key string) error {
	u, err := c.nodeURL(key)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("delete node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}
	return nil
}

// Close releases idle connections.
func (c *Pathstore) Close() {
	c.httpClient.CloseIdleConnections()
}
