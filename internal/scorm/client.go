package scorm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to the course platform's content APIs to pull SCORM course
// structure and media.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger,
	}
}

// Answer is one choice of a course question.
type Answer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a quiz question attached to a course page.
type Question struct {
	LessonPage int      `json:"lessonPage"`
	Question   string   `json:"question"`
	Answers    []Answer `json:"answers"`
}

// Lesson is one page of course text.
type Lesson struct {
	LessonPage int    `json:"lessonPage"`
	Lesson     string `json:"lesson"`
}

// Media is a video embedded in a course page.
type Media struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Src        string `json:"src"`
	LessonPage int    `json:"lessonPage"`
}

// Course is one SCORM course as reported by the content-report API.
type Course struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	PagesCount int                 `json:"pagesCount"`
	Lessons    map[string]Lesson   `json:"lessons"`
	Questions  map[string]Question `json:"questions"`
	Medias     map[string]Media    `json:"medias"`
}

// FetchCourse finds a course by its SCORM id in the content report. The
// report maps course paths to course payloads.
func (c *Client) FetchCourse(ctx context.Context, scormID string) (*Course, string, error) {
	var report map[string]Course
	if err := c.getJSON(ctx, c.baseURL+"/api/content-report", &report); err != nil {
		return nil, "", fmt.Errorf("failed to fetch content report: %w", err)
	}

	for coursePath, course := range report {
		if course.ID == scormID {
			return &course, coursePath, nil
		}
	}
	return nil, "", fmt.Errorf("SCORM course not found with id %s", scormID)
}

// VideoTranscript carries the per-video processing results merged into the
// assembled course text and persisted alongside the course record.
type VideoTranscript struct {
	LessonPage           int    `json:"lessonPage,omitempty"`
	ID                   string `json:"id"`
	Title                string `json:"title"`
	OriginalSrc          string `json:"originalSrc,omitempty"`
	Transcript           string `json:"transcript,omitempty"`
	StructuredTranscript string `json:"structuredTranscript,omitempty"`
	QuestionsAnswers     string `json:"questionsAnswers,omitempty"`
}

// AssembleText flattens a course into a single text document: title, lessons
// in page order, quiz questions with the correct answers marked, and each
// video with its transcription results when available.
func AssembleText(course *Course, videoTranscripts []VideoTranscript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Título do Curso: %s\n\n", course.Title)
	fmt.Fprintf(&b, "Número de páginas: %d\n\n", course.PagesCount)

	if len(course.Lessons) > 0 {
		b.WriteString("=== LIÇÕES ===\n\n")
		for _, lesson := range sortByPage(course.Lessons, func(l Lesson) int { return l.LessonPage }) {
			fmt.Fprintf(&b, "Página %d: %s\n", lesson.LessonPage, lesson.Lesson)
		}
		b.WriteString("\n")
	}

	if len(course.Questions) > 0 {
		b.WriteString("=== PERGUNTAS E RESPOSTAS ===\n\n")
		for _, q := range sortByPage(course.Questions, func(q Question) int { return q.LessonPage }) {
			fmt.Fprintf(&b, "Pergunta (Página %d): %s\n", q.LessonPage, q.Question)
			for _, a := range q.Answers {
				marker := ""
				if a.Correct {
					marker = "[CORRETO]"
				}
				fmt.Fprintf(&b, "  - %s %s\n", marker, a.Text)
			}
			b.WriteString("\n")
		}
	}

	if len(course.Medias) > 0 {
		b.WriteString("=== MÍDIAS (VÍDEOS) ===\n\n")
		for _, media := range sortByPage(course.Medias, func(m Media) int { return m.LessonPage }) {
			title := media.Title
			if title == "" {
				title = media.ID
			}
			fmt.Fprintf(&b, "**Vídeo (Página %d):** %s\n", media.LessonPage, title)
			if media.Src != "" {
				fmt.Fprintf(&b, "  URL: %s\n", media.Src)
			}

			if vt := matchTranscript(videoTranscripts, media); vt != nil {
				if vt.Transcript != "" {
					fmt.Fprintf(&b, "  **Transcrição:**\n  %s\n\n", vt.Transcript)
				}
				if vt.StructuredTranscript != "" {
					fmt.Fprintf(&b, "  **Transcrição Estruturada:**\n  %s\n\n", vt.StructuredTranscript)
				}
				if vt.QuestionsAnswers != "" {
					fmt.Fprintf(&b, "  **Perguntas e Respostas:**\n  %s\n\n", vt.QuestionsAnswers)
				}
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

func sortByPage[T any](m map[string]T, page func(T) int) []T {
	items := make([]T, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}
	sort.SliceStable(items, func(i, j int) bool { return page(items[i]) < page(items[j]) })
	return items
}

func matchTranscript(transcripts []VideoTranscript, media Media) *VideoTranscript {
	for i, vt := range transcripts {
		if vt.LessonPage != 0 && vt.LessonPage != media.LessonPage {
			continue
		}
		if vt.Title == media.Title || vt.ID == media.ID || vt.OriginalSrc == media.Src {
			return &transcripts[i]
		}
	}
	return nil
}

// Video is a course video discovered in the page content tree.
type Video struct {
	ID          string
	Title       string
	Src         string
	OriginalSrc string
	PagePath    string
	PageTitle   string
}

type contentNode struct {
	Tag   string `json:"tag"`
	Props struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Src   string `json:"src"`
	} `json:"props"`
	Children []contentNode `json:"children"`
}

type contentItem struct {
	Path       string `json:"_path"`
	Title      string `json:"title"`
	AssetsPath string `json:"assetsPath"`
	Body       *struct {
		Children []contentNode `json:"children"`
	} `json:"body"`
}

// CourseVideos walks the content query API for content-video nodes under the
// course's pages, resolving relative sources against the course's assets
// path.
func (c *Client) CourseVideos(ctx context.Context, coursePath string) ([]Video, error) {
	var all []contentItem
	if err := c.getJSON(ctx, c.baseURL+"/api/_content/query", &all); err != nil {
		return nil, fmt.Errorf("failed to query course content: %w", err)
	}

	normalized := coursePath
	if !strings.HasPrefix(normalized, "/course/") {
		normalized = "/course/" + strings.TrimPrefix(normalized, "/")
	}
	courseDir := normalized
	if parts := strings.SplitN(strings.TrimPrefix(normalized, "/"), "/", 3); len(parts) >= 2 {
		courseDir = "/" + parts[0] + "/" + parts[1]
	}

	assetsPath := ""
	for _, item := range all {
		if item.Path == courseDir+"/_info" || strings.HasSuffix(item.Path, "/_info") {
			if item.AssetsPath != "" {
				assetsPath = item.AssetsPath
				break
			}
		}
	}

	var videos []Video
	for _, item := range all {
		if item.Path == "" || strings.HasSuffix(item.Path, "/_info") || item.Body == nil {
			continue
		}
		if !strings.HasPrefix(item.Path, courseDir) {
			continue
		}
		videos = append(videos, collectVideos(item.Body.Children, item.Path, item.Title, assetsPath)...)
	}

	c.logger.Info("Discovered course videos",
		slog.String("course_path", coursePath),
		slog.Int("count", len(videos)),
	)
	return videos, nil
}

func collectVideos(children []contentNode, pagePath, pageTitle, assetsPath string) []Video {
	var videos []Video
	for _, child := range children {
		if child.Tag == "content-video" {
			src := child.Props.Src
			fullSrc := src
			if src != "" && !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") && assetsPath != "" {
				fullSrc = strings.TrimRight(assetsPath, "/") + "/" + strings.TrimPrefix(src, "/")
			}

			id := child.Props.ID
			if id == "" {
				id = uuid.New().String()
			}
			title := child.Props.Title
			if title == "" {
				title = "Sem título"
			}

			videos = append(videos, Video{
				ID:          id,
				Title:       title,
				Src:         fullSrc,
				OriginalSrc: src,
				PagePath:    pagePath,
				PageTitle:   pageTitle,
			})
		}
		videos = append(videos, collectVideos(child.Children, pagePath, pageTitle, assetsPath)...)
	}
	return videos
}

// DownloadVideo streams a course video to destPath. Path segments are
// re-encoded because course assets frequently carry spaces and brackets in
// their names.
func (c *Client) DownloadVideo(ctx context.Context, videoURL, destPath string) error {
	encoded := encodeVideoURL(videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, encoded, nil)
	if err != nil {
		return fmt.Errorf("invalid video URL: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("video download returned status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create video file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to save video: %w", err)
	}

	c.logger.Info("Downloaded course video", slog.String("path", destPath))
	return nil
}

func encodeVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		r := strings.NewReplacer(" ", "%20", "[", "%5B", "]", "%5D")
		return r.Replace(raw)
	}

	parts := strings.Split(u.EscapedPath(), "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		decoded, err := url.PathUnescape(part)
		if err != nil {
			decoded = part
		}
		parts[i] = url.PathEscape(decoded)
	}
	escaped := strings.Join(parts, "/")
	if decoded, err := url.PathUnescape(escaped); err == nil {
		u.Path = decoded
		u.RawPath = escaped
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
