package caption

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// IsYouTubeURL reports whether the URL points at a YouTube video.
func IsYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com/") || strings.Contains(url, "youtu.be/")
}

// timedtext is YouTube's caption XML format.
type timedtext struct {
	XMLName xml.Name       `xml:"timedtext"`
	Body    []timedtextCue `xml:"body>p"`
}

type timedtextCue struct {
	Segments []timedtextSegment `xml:"s"`
	Text     string             `xml:",chardata"`
}

type timedtextSegment struct {
	Text string `xml:",chardata"`
}

// YouTubeClient fetches caption tracks and audio streams for YouTube videos.
type YouTubeClient struct {
	client     youtube.Client
	httpClient *http.Client
	logger     *slog.Logger
}

func NewYouTubeClient(logger *slog.Logger) *YouTubeClient {
	return &YouTubeClient{
		client:     youtube.Client{},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Transcript returns the video's caption track as plain text, preferring the
// requested language and falling back to the first available track.
// ErrNoCaptions means the caller should download the audio and transcribe it.
func (c *YouTubeClient) Transcript(ctx context.Context, videoURL, language string) (string, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch video info: %w", err)
	}

	if len(video.CaptionTracks) == 0 {
		return "", ErrNoCaptions
	}

	track := video.CaptionTracks[0]
	for _, t := range video.CaptionTracks {
		if t.LanguageCode == language {
			track = t
			break
		}
	}

	c.logger.Info("Downloading YouTube caption track",
		slog.String("video_id", video.ID),
		slog.String("language", track.LanguageCode),
	)

	text, err := c.fetchCaptionXML(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoCaptions
	}
	return text, nil
}

func (c *YouTubeClient) fetchCaptionXML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return parseTimedText(body)
}

func parseTimedText(data []byte) (string, error) {
	var tt timedtext
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", fmt.Errorf("failed to parse caption XML: %w", err)
	}

	var parts []string
	for _, cue := range tt.Body {
		var text string
		for _, seg := range cue.Segments {
			text += seg.Text
		}
		if text == "" {
			text = strings.TrimSpace(cue.Text)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// DownloadAudio saves the video's audio stream to outputPath for the
// transcription fallback when no captions exist.
func (c *YouTubeClient) DownloadAudio(ctx context.Context, videoURL, outputPath string) error {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return fmt.Errorf("failed to fetch video info: %w", err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return fmt.Errorf("no audio formats available for video %s", video.ID)
	}

	stream, size, err := c.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	c.logger.Info("Downloading YouTube audio",
		slog.String("video_id", video.ID),
		slog.Int64("size_bytes", size),
	)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to download audio: %w", err)
	}
	return nil
}
