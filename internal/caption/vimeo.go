package caption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

// ErrNoCaptions reports a video without any usable caption track. Callers
// fall back to audio transcription.
var ErrNoCaptions = errors.New("no captions available for video")

var vimeoIDRe = regexp.MustCompile(`vimeo\.com/(\d+)`)

// ExtractVimeoID pulls the numeric video id out of a Vimeo URL.
func ExtractVimeoID(url string) (string, bool) {
	m := vimeoIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsVimeoURL reports whether the URL points at a Vimeo video.
func IsVimeoURL(url string) bool {
	_, ok := ExtractVimeoID(url)
	return ok
}

type vimeoTextTracks struct {
	Data []struct {
		Link     string `json:"link"`
		Language string `json:"language"`
		Active   bool   `json:"active"`
	} `json:"data"`
	Error string `json:"error"`
}

// VimeoClient fetches caption tracks through the Vimeo API.
type VimeoClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewVimeoClient(token string, logger *slog.Logger) *VimeoClient {
	return &VimeoClient{
		baseURL:    "https://api.vimeo.com",
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Transcript returns the video's first caption track as plain text, or
// ErrNoCaptions when the video has none.
func (c *VimeoClient) Transcript(ctx context.Context, videoURL string) (string, error) {
	videoID, ok := ExtractVimeoID(videoURL)
	if !ok {
		return "", fmt.Errorf("not a valid Vimeo URL: %s", videoURL)
	}
	if c.token == "" {
		return "", errors.New("VIMEO_ACCESS_TOKEN is not configured")
	}

	tracks, err := c.listTextTracks(ctx, videoID)
	if err != nil {
		return "", err
	}
	if len(tracks.Data) == 0 {
		return "", ErrNoCaptions
	}

	c.logger.Info("Downloading Vimeo caption track",
		slog.String("video_id", videoID),
		slog.String("language", tracks.Data[0].Language),
	)

	vtt, err := c.download(ctx, tracks.Data[0].Link)
	if err != nil {
		return "", fmt.Errorf("failed to download caption track: %w", err)
	}

	text := VTTToText(vtt)
	if text == "" {
		return "", ErrNoCaptions
	}
	return text, nil
}

func (c *VimeoClient) listTextTracks(ctx context.Context, videoID string) (*vimeoTextTracks, error) {
	url := fmt.Sprintf("%s/videos/%s/texttracks", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Vimeo API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Vimeo API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tracks vimeoTextTracks
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("failed to decode Vimeo response: %w", err)
	}
	if tracks.Error != "" {
		return nil, fmt.Errorf("Vimeo API error: %s", tracks.Error)
	}
	return &tracks, nil
}

func (c *VimeoClient) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
