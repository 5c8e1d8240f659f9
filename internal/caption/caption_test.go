package caption

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVTTToText(t *testing.T) {
	vtt := `WEBVTT

1
00:00:00.000 --> 00:00:03.000
Bem-vindos ao treinamento.

2
00:00:03.000 --> 00:00:06.000
Bem-vindos ao treinamento.

3
00:00:06.000 --> 00:00:10.000
Hoje falaremos de manejo integrado.
`

	got := VTTToText(vtt)

	assert.Equal(t, "Bem-vindos ao treinamento.\nHoje falaremos de manejo integrado.", got)
}

func TestVTTToText_Empty(t *testing.T) {
	assert.Equal(t, "", VTTToText("WEBVTT\n\n"))
}

func TestExtractVimeoID(t *testing.T) {
	tests := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{url: "https://vimeo.com/123456789", wantID: "123456789", wantOK: true},
		{url: "https://player.vimeo.com/video/987", wantID: "", wantOK: false},
		{url: "https://vimeo.com/123456789?h=abc", wantID: "123456789", wantOK: true},
		{url: "https://youtube.com/watch?v=abc", wantID: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, ok := ExtractVimeoID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, IsYouTubeURL("https://www.youtube.com/watch?v=abc"))
	assert.True(t, IsYouTubeURL("https://youtu.be/abc"))
	assert.False(t, IsYouTubeURL("https://vimeo.com/123"))
}

func TestVimeoTranscript(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/videos/123/texttracks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"data":[{"link":"%s/track.vtt","language":"pt"}]}`, server.URL)
	})
	mux.HandleFunc("/track.vtt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nOlá a todos.\n")
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	c := NewVimeoClient("test-token", slog.New(slog.DiscardHandler))
	c.baseURL = server.URL

	got, err := c.Transcript(context.Background(), "https://vimeo.com/123")

	require.NoError(t, err)
	assert.Equal(t, "Olá a todos.", got)
}

func TestVimeoTranscript_NoTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	c := NewVimeoClient("test-token", slog.New(slog.DiscardHandler))
	c.baseURL = server.URL

	_, err := c.Transcript(context.Background(), "https://vimeo.com/123")

	assert.ErrorIs(t, err, ErrNoCaptions)
}

func TestVimeoTranscript_InvalidURL(t *testing.T) {
	c := NewVimeoClient("test-token", slog.New(slog.DiscardHandler))

	_, err := c.Transcript(context.Background(), "https://example.com/video")

	assert.Error(t, err)
}

func TestVimeoTranscript_MissingToken(t *testing.T) {
	c := NewVimeoClient("", slog.New(slog.DiscardHandler))

	_, err := c.Transcript(context.Background(), "https://vimeo.com/123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIMEO_ACCESS_TOKEN")
}

func TestParseTimedText(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<timedtext format="3">
  <body>
    <p t="0" d="2000"><s>Primeira </s><s>parte.</s></p>
    <p t="2000" d="2000">Segunda parte.</p>
    <p t="4000" d="1000"></p>
  </body>
</timedtext>`)

	got, err := parseTimedText(data)

	require.NoError(t, err)
	assert.Equal(t, "Primeira parte. Segunda parte.", got)
}

func TestParseTimedText_Malformed(t *testing.T) {
	_, err := parseTimedText([]byte("not xml"))
	assert.Error(t, err)
}
