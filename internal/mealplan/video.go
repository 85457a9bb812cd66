package mealplan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

const youtubeSearchEndpoint = "https://www.googleapis.com/youtube/v3/search"

// YouTubeFinder finds a companion video through the YouTube Data API.
// Without an API key every lookup resolves to the placeholder link, which
// keeps the handler functional in environments without YouTube quota.
type YouTubeFinder struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   log.Logger
}

// NewYouTubeFinder creates a YouTubeFinder. The API key may be empty.
func NewYouTubeFinder(apiKey string, logger log.Logger) *YouTubeFinder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &YouTubeFinder{
		apiKey:   apiKey,
		endpoint: youtubeSearchEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// FindVideo returns the watch URL of the top search result for the query,
// or the placeholder when no key is configured or nothing matches.
func (f *YouTubeFinder) FindVideo(ctx context.Context, query string) (string, error) {
	if f.apiKey == "" {
		return recipe.PlaceholderVideoURL, nil
	}

	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"maxResults": {"1"},
		"q":          {query},
		"key":        {f.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building video search request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching videos for %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("video search for %q returned status %d", query, resp.StatusCode)
	}

	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding video search response: %w", err)
	}

	if len(body.Items) == 0 || body.Items[0].ID.VideoID == "" {
		f.logger.Debug("no video found", "query", query)
		return recipe.PlaceholderVideoURL, nil
	}
	return "https://www.youtube.com/watch?v=" + body.Items[0].ID.VideoID, nil
}
