package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	catAPIURL = "https://api.thecatapi.com/v1/images/search"
	dogAPIURL = "https://api.thedogapi.com/v1/images/search"
)

// ImageService fetches a random placeholder image URL for the
// "not understood" reply. The primary source is tried first, then the
// fallback; both calls share one bounded timeout so a slow API can never
// stall a conversation.
type ImageService struct {
	client   *http.Client
	primary  string
	fallback string
	timeout  time.Duration
}

func NewImageService(timeout time.Duration) *ImageService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ImageService{
		client:   &http.Client{Timeout: timeout},
		primary:  catAPIURL,
		fallback: dogAPIURL,
		timeout:  timeout,
	}
}

// RandomImage returns an image URL or an error when both sources failed.
func (s *ImageService) RandomImage(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url, err := s.fetch(ctx, s.primary)
	if err == nil {
		return url, nil
	}
	url, fbErr := s.fetch(ctx, s.fallback)
	if fbErr != nil {
		return "", fmt.Errorf("fetch image: primary: %v, fallback: %w", err, fbErr)
	}
	return url, nil
}

func (s *ImageService) fetch(ctx context.Context, apiURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, apiURL)
	}

	var payload []struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload) == 0 || payload[0].URL == "" {
		return "", fmt.Errorf("empty response from %s", apiURL)
	}
	return payload[0].URL, nil
}
