package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecenturetech/ScriptTranscipt/internal/caption"
	"github.com/Ecenturetech/ScriptTranscipt/internal/enrich"
	"github.com/Ecenturetech/ScriptTranscipt/internal/pdfextract"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
	"github.com/Ecenturetech/ScriptTranscipt/internal/scorm"
)

type fakeKeys struct{ err error }

func (f *fakeKeys) CheckAPIKey() error { return f.err }

type fakeSplitter struct {
	chunks  []string
	err     error
	splits  int
	cleaned [][]string
}

func (f *fakeSplitter) Split(_ context.Context, inputPath, _, _ string) ([]string, error) {
	f.splits++
	if f.err != nil {
		return nil, f.err
	}
	if f.chunks != nil {
		return f.chunks, nil
	}
	return []string{inputPath}, nil
}

func (f *fakeSplitter) Cleanup(chunkPaths []string) {
	f.cleaned = append(f.cleaned, chunkPaths)
}

type fakeTranscriber struct {
	text      string
	err       error
	gotChunks []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, chunkPaths []string) (string, error) {
	f.gotChunks = append(f.gotChunks, chunkPaths...)
	return f.text, f.err
}

type fakePipeline struct {
	outcome     enrich.Outcome
	err         error
	gotText     string
	gotDoc      string
	gotMetadata bool
	runs        int
}

func (f *fakePipeline) Run(_ context.Context, text, docName string, withMetadata bool) (enrich.Outcome, error) {
	f.runs++
	f.gotText = text
	f.gotDoc = docName
	f.gotMetadata = withMetadata
	return f.outcome, f.err
}

type fakePDFExtractor struct {
	text        string
	textErr     error
	visionText  string
	visionErr   error
	textCalls   int
	visionCalls int
}

func (f *fakePDFExtractor) ExtractText(string) (string, error) {
	f.textCalls++
	return f.text, f.textErr
}

func (f *fakePDFExtractor) ExtractViaVision(context.Context, string) (string, error) {
	f.visionCalls++
	return f.visionText, f.visionErr
}

type fakeVimeo struct {
	text  string
	err   error
	calls int
}

func (f *fakeVimeo) Transcript(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeYouTube struct {
	text         string
	err          error
	downloadErr  error
	downloadedTo string
}

func (f *fakeYouTube) Transcript(context.Context, string, string) (string, error) {
	return f.text, f.err
}

func (f *fakeYouTube) DownloadAudio(_ context.Context, _, outputPath string) error {
	f.downloadedTo = outputPath
	return f.downloadErr
}

type fakeScormAPI struct {
	course      *scorm.Course
	coursePath  string
	fetchErr    error
	videos      []scorm.Video
	videosErr   error
	downloadErr error
	downloaded  []string
}

func (f *fakeScormAPI) FetchCourse(context.Context, string) (*scorm.Course, string, error) {
	return f.course, f.coursePath, f.fetchErr
}

func (f *fakeScormAPI) CourseVideos(context.Context, string) ([]scorm.Video, error) {
	return f.videos, f.videosErr
}

func (f *fakeScormAPI) DownloadVideo(_ context.Context, videoURL, _ string) error {
	f.downloaded = append(f.downloaded, videoURL)
	return f.downloadErr
}

type fakeVideoRepo struct {
	insertedID      string
	insertedName    string
	sourceType      string
	sourceURL       string
	savedTranscript string
	completed       bool
	errMsg          string
}

func (f *fakeVideoRepo) InsertProcessing(_ context.Context, id, fileName, sourceType, sourceURL string) error {
	f.insertedID = id
	f.insertedName = fileName
	f.sourceType = sourceType
	f.sourceURL = sourceURL
	return nil
}

func (f *fakeVideoRepo) SaveTranscript(_ context.Context, _, transcript string) error {
	f.savedTranscript = transcript
	return nil
}

func (f *fakeVideoRepo) Complete(_ context.Context, _, _, _, _ string) error {
	f.completed = true
	return nil
}

func (f *fakeVideoRepo) SetError(_ context.Context, _, message string) error {
	f.errMsg = message
	return nil
}

type fakePDFRepo struct {
	insertedID    string
	savedText     string
	savedMetadata string
	completed     bool
	errMsg        string
}

func (f *fakePDFRepo) InsertProcessing(_ context.Context, id, _ string) error {
	f.insertedID = id
	return nil
}

func (f *fakePDFRepo) SaveExtractedText(_ context.Context, _, text string) error {
	f.savedText = text
	return nil
}

func (f *fakePDFRepo) SaveMetadata(_ context.Context, _, metadata string) error {
	f.savedMetadata = metadata
	return nil
}

func (f *fakePDFRepo) Complete(_ context.Context, _, _, _ string) error {
	f.completed = true
	return nil
}

func (f *fakePDFRepo) SetError(_ context.Context, _, message string) error {
	f.errMsg = message
	return nil
}

type fakeScormRepo struct {
	insertedID    string
	insertedScorm string
	savedText     string
	savedVideos   string
	savedMetadata string
	completed     bool
	errMsg        string
}

func (f *fakeScormRepo) InsertProcessing(_ context.Context, id, scormID, _ string) error {
	f.insertedID = id
	f.insertedScorm = scormID
	return nil
}

func (f *fakeScormRepo) SaveExtractedText(_ context.Context, _, text string) error {
	f.savedText = text
	return nil
}

func (f *fakeScormRepo) SaveVideos(_ context.Context, _, videosJSON string) error {
	f.savedVideos = videosJSON
	return nil
}

func (f *fakeScormRepo) SaveMetadata(_ context.Context, _, metadata string) error {
	f.savedMetadata = metadata
	return nil
}

func (f *fakeScormRepo) Complete(_ context.Context, _, _, _ string) error {
	f.completed = true
	return nil
}

func (f *fakeScormRepo) SetError(_ context.Context, _, message string) error {
	f.errMsg = message
	return nil
}

type testEnv struct {
	storageDir  string
	keys        *fakeKeys
	splitter    *fakeSplitter
	transcriber *fakeTranscriber
	pipeline    *fakePipeline
	pdf         *fakePDFExtractor
	vimeo       *fakeVimeo
	youtube     *fakeYouTube
	scormAPI    *fakeScormAPI
	videos      *fakeVideoRepo
	pdfs        *fakePDFRepo
	scorms      *fakeScormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		storageDir:  t.TempDir(),
		keys:        &fakeKeys{},
		splitter:    &fakeSplitter{},
		transcriber: &fakeTranscriber{text: "texto bruto da transcrição"},
		pipeline: &fakePipeline{outcome: enrich.Outcome{
			CorrectedText:     "texto corrigido",
			StructuredSummary: "resumo estruturado",
			QuestionsAnswers:  "P: pergunta? R: resposta.",
		}},
		pdf:      &fakePDFExtractor{text: "conteúdo do documento"},
		vimeo:    &fakeVimeo{text: "legenda do vimeo"},
		youtube:  &fakeYouTube{text: "legenda do youtube"},
		scormAPI: &fakeScormAPI{},
		videos:   &fakeVideoRepo{},
		pdfs:     &fakePDFRepo{},
		scorms:   &fakeScormRepo{},
	}
}

func (e *testEnv) dispatcher() *Dispatcher {
	return NewDispatcher(Deps{
		StorageDir:  e.storageDir,
		Language:    "pt",
		Keys:        e.keys,
		Splitter:    e.splitter,
		Transcriber: e.transcriber,
		Pipeline:    e.pipeline,
		PDF:         e.pdf,
		Vimeo:       e.vimeo,
		YouTube:     e.youtube,
		Scorm:       e.scormAPI,
		Videos:      e.videos,
		PDFs:        e.pdfs,
		Scorms:      e.scorms,
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDispatchUpload(t *testing.T) {
	env := newTestEnv(t)
	src := writeTempFile(t, "aula.mp4", "fake video bytes")

	result, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.UploadPayload{FilePath: src, FileName: "aula.mp4"},
	})
	require.NoError(t, err)

	assert.Equal(t, env.videos.insertedID, result.EntityID)
	assert.Equal(t, "aula.mp4", result.FileName)
	assert.Equal(t, "upload", env.videos.sourceType)
	assert.Equal(t, "texto corrigido", result.Transcript)
	assert.Equal(t, "resumo estruturado", result.StructuredTranscript)
	assert.Equal(t, "Vídeo processado com sucesso", result.Message)

	assert.Equal(t, "texto bruto da transcrição", env.videos.savedTranscript)
	assert.True(t, env.videos.completed)
	assert.Equal(t, "texto bruto da transcrição", env.pipeline.gotText)
	assert.False(t, env.pipeline.gotMetadata)

	stored := filepath.Join(env.storageDir, "video-"+result.EntityID+".mp4")
	_, statErr := os.Stat(stored)
	assert.NoError(t, statErr)

	// The spooled upload must not linger next to the stored copy.
	assert.NoFileExists(t, src)

	// Single-chunk passthrough must not delete the stored file.
	assert.Empty(t, env.splitter.cleaned)
}

func TestDispatchUploadSplitChunksCleaned(t *testing.T) {
	env := newTestEnv(t)
	env.splitter.chunks = []string{"/tmp/chunk-1.mp3", "/tmp/chunk-2.mp3"}
	src := writeTempFile(t, "aula.mp4", "fake video bytes")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.UploadPayload{FilePath: src, FileName: "aula.mp4"},
	})
	require.NoError(t, err)

	require.Len(t, env.splitter.cleaned, 1)
	assert.Equal(t, env.splitter.chunks, env.splitter.cleaned[0])
}

func TestDispatchUploadInvalidAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.keys.err = errors.New("invalid api key")
	src := writeTempFile(t, "aula.mp4", "fake video bytes")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.UploadPayload{FilePath: src, FileName: "aula.mp4"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")

	assert.Contains(t, env.videos.errMsg, "API key")
	assert.Zero(t, env.pipeline.runs)
	assert.False(t, env.videos.completed)
}

func TestDispatchPDF(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.outcome.Metadata = "registro de metadados"
	src := writeTempFile(t, "manual.pdf", "%PDF-1.4 fake")

	result, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.PDFPayload{FilePath: src, FileName: "manual.pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, env.pdfs.insertedID, result.EntityID)
	assert.Equal(t, "registro de metadados", result.Metadata)
	assert.Equal(t, "PDF processado com sucesso", result.Message)

	assert.Equal(t, 1, env.pdf.textCalls)
	assert.Zero(t, env.pdf.visionCalls)
	assert.Equal(t, "conteúdo do documento", env.pipeline.gotText)
	assert.True(t, env.pipeline.gotMetadata)
	assert.Equal(t, "texto corrigido", env.pdfs.savedText)
	assert.Equal(t, "registro de metadados", env.pdfs.savedMetadata)
	assert.True(t, env.pdfs.completed)

	stored := filepath.Join(env.storageDir, "pdf-"+result.EntityID+".pdf")
	_, statErr := os.Stat(stored)
	assert.NoError(t, statErr)
	assert.NoFileExists(t, src)
}

func TestDispatchPDFVisionFallback(t *testing.T) {
	env := newTestEnv(t)
	env.pdf.textErr = pdfextract.ErrNoText
	env.pdf.visionText = "texto vindo do OCR"
	src := writeTempFile(t, "scan.pdf", "%PDF-1.4 fake")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.PDFPayload{FilePath: src, FileName: "scan.pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.pdf.textCalls)
	assert.Equal(t, 1, env.pdf.visionCalls)
	assert.Equal(t, "texto vindo do OCR", env.pipeline.gotText)
}

func TestDispatchPDFForceVision(t *testing.T) {
	env := newTestEnv(t)
	env.pdf.visionText = "texto vindo do OCR"
	src := writeTempFile(t, "scan.pdf", "%PDF-1.4 fake")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.PDFPayload{FilePath: src, FileName: "scan.pdf", ForceVision: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.pdf.visionCalls)
	assert.Zero(t, env.pdf.textCalls)
	assert.Equal(t, "texto vindo do OCR", env.pipeline.gotText)
}

func TestDispatchPDFMissingPromptFailsJob(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.err = &enrich.ConfigError{Setting: "qa_prompt"}
	src := writeTempFile(t, "manual.pdf", "%PDF-1.4 fake")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.PDFPayload{FilePath: src, FileName: "manual.pdf"},
	})
	require.Error(t, err)

	var cfgErr *enrich.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "qa_prompt", cfgErr.Setting)
	assert.NotEmpty(t, env.pdfs.errMsg)
	assert.False(t, env.pdfs.completed)
}

func TestDispatchURLVimeoCaptions(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.URLPayload{VideoURL: "https://vimeo.com/123456"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.vimeo.calls)
	assert.Zero(t, env.splitter.splits)
	assert.Equal(t, "url", env.videos.sourceType)
	assert.Equal(t, "https://vimeo.com/123456", env.videos.sourceURL)
	assert.Equal(t, "legenda do vimeo", env.videos.savedTranscript)
	assert.True(t, env.videos.completed)
	assert.Equal(t, "https://vimeo.com/123456", result.FileName)
}

func TestDispatchURLYouTubeAudioFallback(t *testing.T) {
	env := newTestEnv(t)
	env.youtube.err = caption.ErrNoCaptions

	result, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.URLPayload{VideoURL: "https://www.youtube.com/watch?v=abc123"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(env.youtube.downloadedTo, env.storageDir))
	assert.True(t, strings.HasSuffix(env.youtube.downloadedTo, ".m4a"))
	assert.Equal(t, 1, env.splitter.splits)
	assert.Equal(t, "texto bruto da transcrição", env.videos.savedTranscript)
	assert.Equal(t, "texto corrigido", result.Transcript)
}

func TestDispatchURLUnsupported(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.URLPayload{VideoURL: "https://example.com/video.mp4"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported video URL")
	assert.Contains(t, env.videos.errMsg, "unsupported video URL")
}

func scormTestCourse() *scorm.Course {
	return &scorm.Course{
		ID:         "course-1",
		Title:      "Manejo Integrado de Pragas",
		PagesCount: 2,
		Lessons: map[string]scorm.Lesson{
			"l1": {LessonPage: 1, Lesson: "Introdução ao manejo"},
		},
		Questions: map[string]scorm.Question{
			"q1": {
				LessonPage: 2,
				Question:   "Qual o principal benefício?",
				Answers: []scorm.Answer{
					{Text: "Redução de custos", Correct: true},
					{Text: "Nenhum", Correct: false},
				},
			},
		},
		Medias: map[string]scorm.Media{
			"m1": {ID: "v1", Title: "Introdução", Src: "https://cdn.example.com/intro.mp4", LessonPage: 1},
		},
	}
}

func TestDispatchScorm(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.outcome.Metadata = "registro de metadados"
	env.scormAPI.course = scormTestCourse()
	env.scormAPI.coursePath = "/course/manejo"
	env.scormAPI.videos = []scorm.Video{
		{ID: "v1", Title: "Introdução", Src: "https://cdn.example.com/intro.mp4", OriginalSrc: "videos/intro.mp4"},
	}

	result, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.ScormPayload{ScormID: "scorm-1", ScormName: "Manejo"},
	})
	require.NoError(t, err)

	assert.Equal(t, env.scorms.insertedID, result.EntityID)
	assert.Equal(t, "scorm-1", env.scorms.insertedScorm)
	assert.Equal(t, "SCORM processado com sucesso", result.Message)

	assert.Contains(t, env.scorms.savedText, "Título do Curso: Manejo Integrado de Pragas")
	assert.Contains(t, env.scorms.savedText, "[CORRETO] Redução de custos")
	assert.Contains(t, env.scorms.savedText, "**Transcrição:**")
	assert.Contains(t, env.scorms.savedText, "texto corrigido")
	assert.Contains(t, env.scorms.savedText, "**Transcrição Estruturada:**")

	// One pipeline run per video plus one for the assembled course text.
	assert.Equal(t, 2, env.pipeline.runs)
	assert.Contains(t, env.scorms.savedVideos, `"id":"v1"`)
	assert.Contains(t, env.scorms.savedVideos, "texto corrigido")

	assert.Equal(t, []string{"https://cdn.example.com/intro.mp4"}, env.scormAPI.downloaded)
	assert.Equal(t, "registro de metadados", env.scorms.savedMetadata)
	assert.True(t, env.scorms.completed)
}

func TestDispatchScormBrokenVideoSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.scormAPI.course = scormTestCourse()
	env.scormAPI.videos = []scorm.Video{
		{ID: "v1", Title: "Introdução", Src: "https://cdn.example.com/intro.mp4"},
	}
	env.scormAPI.downloadErr = errors.New("404 not found")

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{
		Payload: queue.ScormPayload{ScormID: "scorm-1", ScormName: "Manejo"},
	})
	require.NoError(t, err)

	assert.Contains(t, env.scorms.savedText, "Título do Curso:")
	assert.NotContains(t, env.scorms.savedText, "**Transcrição:**")
	assert.Empty(t, env.scorms.savedVideos)
	assert.True(t, env.scorms.completed)
	assert.Empty(t, env.scorms.errMsg)
}

func TestDispatchUnknownPayload(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatcher().Dispatch(context.Background(), &queue.Job{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job payload type")
}
