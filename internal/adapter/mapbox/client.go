package mapbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxImageBytes caps a fetched static image; Mapbox tops out well below this.
const maxImageBytes = 8 << 20

// Client builds Mapbox Static Images API URLs and fetches the rendered images.
type Client struct {
	token      string
	style      string
	width      int
	height     int
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox static image client.
// style is a Mapbox style id such as "mapbox/streets-v11".
func NewClient(token, style string, width, height int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token:  token,
		style:  style,
		width:  width,
		height: height,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com",
		logger:  logger,
	}
}

// StaticMapURL returns the URL of a map auto-fitted to the given GeoJSON overlay.
func (c *Client) StaticMapURL(geojson []byte) string {
	return fmt.Sprintf("%s/styles/v1/%s/static/geojson(%s)/auto/%dx%d?access_token=%s",
		c.baseURL, c.style, url.PathEscape(string(geojson)), c.width, c.height, url.QueryEscape(c.token))
}

// FetchImage downloads the image at a URL produced by StaticMapURL.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("static image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	c.logger.Debug("static map fetched", "bytes", len(img), "content_type", resp.Header.Get("Content-Type"))
	return img, nil
}
