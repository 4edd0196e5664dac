// Package icons resolves free-form icon hints to SVG markup through an
// Iconify-style HTTP API, with AI-assisted re-translation of names that do
// not exist and a built-in fallback icon.
package icons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/docdeck/internal/llm"
)

// ErrNotFound means the icon set has no icon with the requested name.
var ErrNotFound = errors.New("icon not found")

// Fetcher retrieves the SVG for an exact icon name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Client fetches icons from GET {baseURL}/{set}/{name}.svg.
type Client struct {
	baseURL    string
	set        string
	httpClient *http.Client
}

func NewClient(baseURL, set string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		set:     set,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch returns the icon's SVG markup, ErrNotFound, or a transport error.
func (c *Client) Fetch(ctx context.Context, name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("icon %q: %w", name, ErrNotFound)
	}
	u := c.baseURL + "/" + url.PathEscape(c.set) + "/" + name + ".svg"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &llm.TransportError{Service: "icons", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("icon %q: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &llm.TransportError{Service: "icons", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return "", &llm.TransportError{Service: "icons", StatusCode: resp.StatusCode, Err: err}
	}
	svg := strings.TrimSpace(string(body))
	// Iconify answers unknown names in some sets with 200 and a bare "404".
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("icon %q: %w", name, ErrNotFound)
	}
	return svg, nil
}
