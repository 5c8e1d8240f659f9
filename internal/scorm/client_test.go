package scorm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, slog.New(slog.DiscardHandler))
}

func TestFetchCourse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/content-report", r.URL.Path)
		fmt.Fprint(w, `{
			"/course/manejo": {"id": "scorm-1", "title": "Manejo Integrado", "pagesCount": 3},
			"/course/solo": {"id": "scorm-2", "title": "Solos", "pagesCount": 5}
		}`)
	}))
	defer server.Close()

	course, coursePath, err := testClient(server.URL).FetchCourse(context.Background(), "scorm-2")

	require.NoError(t, err)
	assert.Equal(t, "Solos", course.Title)
	assert.Equal(t, "/course/solo", coursePath)
}

func TestFetchCourse_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).FetchCourse(context.Background(), "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestAssembleText(t *testing.T) {
	course := &Course{
		Title:      "Manejo Integrado",
		PagesCount: 2,
		Lessons: map[string]Lesson{
			"b": {LessonPage: 2, Lesson: "Segunda lição"},
			"a": {LessonPage: 1, Lesson: "Primeira lição"},
		},
		Questions: map[string]Question{
			"q1": {LessonPage: 2, Question: "Qual o manejo correto?", Answers: []Answer{
				{Text: "Opção errada", Correct: false},
				{Text: "Opção certa", Correct: true},
			}},
		},
		Medias: map[string]Media{
			"m1": {ID: "vid-1", Title: "Introdução", Src: "https://cdn/intro.mp4", LessonPage: 1},
		},
	}
	transcripts := []VideoTranscript{{
		LessonPage: 1,
		Title:      "Introdução",
		Transcript: "Bem-vindos ao curso.",
	}}

	text := AssembleText(course, transcripts)

	assert.Contains(t, text, "Título do Curso: Manejo Integrado")
	assert.Contains(t, text, "[CORRETO] Opção certa")
	assert.NotContains(t, text, "[CORRETO] Opção errada")
	assert.Contains(t, text, "**Transcrição:**\n  Bem-vindos ao curso.")

	// lessons in page order
	first := strings.Index(text, "Primeira lição")
	second := strings.Index(text, "Segunda lição")
	require.Positive(t, first)
	assert.Greater(t, second, first)
}

func TestCourseVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/_content/query", r.URL.Path)
		fmt.Fprint(w, `[
			{"_path": "/course/manejo/_info", "assetsPath": "https://cdn.example.com/assets/"},
			{"_path": "/course/manejo/page-1", "title": "Página 1", "body": {"children": [
				{"tag": "div", "children": [
					{"tag": "content-video", "props": {"id": "vid-1", "title": "Intro", "src": "videos/intro.mp4"}}
				]}
			]}},
			{"_path": "/course/outro/page-1", "title": "Outro curso", "body": {"children": [
				{"tag": "content-video", "props": {"id": "vid-x", "src": "https://cdn/x.mp4"}}
			]}}
		]`)
	}))
	defer server.Close()

	videos, err := testClient(server.URL).CourseVideos(context.Background(), "manejo/page-1")

	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "vid-1", videos[0].ID)
	assert.Equal(t, "https://cdn.example.com/assets/videos/intro.mp4", videos[0].Src)
	assert.Equal(t, "videos/intro.mp4", videos[0].OriginalSrc)
	assert.Equal(t, "Página 1", videos[0].PageTitle)
}

func TestDownloadVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/aula%20um.mp4", r.URL.EscapedPath())
		fmt.Fprint(w, "video-bytes")
	}))
	defer server.Close()

	dest := t.TempDir() + "/video.mp4"
	err := testClient(server.URL).DownloadVideo(context.Background(), server.URL+"/assets/aula um.mp4", dest)

	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestDownloadVideo_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := testClient(server.URL).DownloadVideo(context.Background(), server.URL+"/missing.mp4", t.TempDir()+"/v.mp4")

	assert.Error(t, err)
}

func TestEncodeVideoURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/assets/aula%20%5B1%5D.mp4",
		encodeVideoURL("https://cdn.example.com/assets/aula [1].mp4"),
	)
	assert.Equal(t,
		"https://cdn.example.com/a/b.mp4",
		encodeVideoURL("https://cdn.example.com/a/b.mp4"),
	)
}
