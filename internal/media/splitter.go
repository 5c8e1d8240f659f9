package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// MaxFileSizeMB is the transcription endpoint's hard payload ceiling.
	MaxFileSizeMB = 25
	// ChunkTargetSizeMB is the split target, kept under the ceiling to leave
	// re-encoding headroom.
	ChunkTargetSizeMB = 20
)

const (
	primaryBitrate  = "128k"
	fallbackBitrate = "64k"
)

// Splitter slices oversized media files into transcription-sized mp3 chunks
// using ffmpeg/ffprobe. Tool paths come from configuration, falling back to a
// PATH lookup; a missing tool degrades to whole-file processing instead of
// failing the job here.
type Splitter struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// NewSplitter creates a splitter. Empty paths mean "resolve from PATH".
func NewSplitter(ffmpegPath, ffprobePath string, logger *slog.Logger) *Splitter {
	return &Splitter{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

// Split returns ordered chunk paths for inputPath. Files at or under the
// ceiling are returned untouched as a single-element slice. When splitting is
// impossible (no ffmpeg, unprobeable duration) the original path is returned
// as a best-effort fallback and the size problem surfaces later at the
// transcription call. A chunk that cannot be squeezed under the ceiling even
// at the fallback bitrate fails the whole split.
func (s *Splitter) Split(ctx context.Context, inputPath, outputDir, baseName string) ([]string, error) {
	sizeMB, err := fileSizeMB(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}

	if sizeMB <= MaxFileSizeMB {
		return []string{inputPath}, nil
	}

	ffmpeg, err := s.resolveTool(s.ffmpegPath, "ffmpeg")
	if err != nil {
		s.logger.Warn("ffmpeg not found, processing whole file; the transcription API may reject files over 25MB",
			slog.Float64("size_mb", sizeMB),
		)
		return []string{inputPath}, nil
	}

	duration, err := s.probeDuration(ctx, inputPath)
	if err != nil || duration <= 0 {
		s.logger.Warn("could not probe media duration, processing whole file",
			slog.String("path", inputPath),
		)
		return []string{inputPath}, nil
	}

	estimatedChunks := estimateChunks(sizeMB)
	chunkDuration := duration / float64(estimatedChunks)

	chunkDir := filepath.Join(outputDir, "chunks-"+baseName)
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	s.logger.Info("Splitting media file",
		slog.Float64("size_mb", sizeMB),
		slog.Float64("duration_s", duration),
		slog.Int("chunks", estimatedChunks),
	)

	chunks := make([]string, 0, estimatedChunks)
	for i := 0; i < estimatedChunks; i++ {
		start := float64(i) * chunkDuration
		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk-%d.mp3", i+1))

		if err := s.encode(ctx, ffmpeg, inputPath, start, chunkDuration, primaryBitrate, chunkPath); err != nil {
			return nil, fmt.Errorf("failed to encode chunk %d: %w", i+1, err)
		}

		chunkSize, err := fileSizeMB(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat chunk %d: %w", i+1, err)
		}

		if chunkSize > MaxFileSizeMB {
			s.logger.Warn("Chunk still over the ceiling, re-encoding at lower bitrate",
				slog.Int("chunk", i+1),
				slog.Float64("size_mb", chunkSize),
			)
			os.Remove(chunkPath)
			if err := s.encode(ctx, ffmpeg, inputPath, start, chunkDuration, fallbackBitrate, chunkPath); err != nil {
				return nil, fmt.Errorf("failed to re-encode chunk %d: %w", i+1, err)
			}
			chunkSize, err = fileSizeMB(chunkPath)
			if err != nil {
				return nil, fmt.Errorf("failed to stat chunk %d: %w", i+1, err)
			}
			if chunkSize > MaxFileSizeMB {
				return nil, fmt.Errorf("could not reduce chunk %d below %dMB (got %.2fMB)", i+1, MaxFileSizeMB, chunkSize)
			}
		}

		chunks = append(chunks, chunkPath)
	}

	return chunks, nil
}

// Cleanup removes chunk files and their directory once empty. Missing files
// and directories are tolerated; chunks are ephemeral and a double cleanup
// must not fail a job.
func (s *Splitter) Cleanup(chunkPaths []string) {
	if len(chunkPaths) == 0 {
		return
	}

	for _, p := range chunkPaths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove chunk",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	chunkDir := filepath.Dir(chunkPaths[0])
	entries, err := os.ReadDir(chunkDir)
	if err == nil && len(entries) == 0 {
		os.Remove(chunkDir)
	}
}

func (s *Splitter) resolveTool(configured, name string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured %s path not usable: %w", name, err)
		}
		return configured, nil
	}
	return exec.LookPath(name)
}

// probeDuration returns the media duration in seconds via ffprobe.
func (s *Splitter) probeDuration(ctx context.Context, path string) (float64, error) {
	ffprobe, err := s.resolveTool(s.ffprobePath, "ffprobe")
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

func (s *Splitter) encode(ctx context.Context, ffmpeg, inputPath string, start, duration float64, bitrate, outputPath string) error {
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", bitrate,
		"-y",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\noutput: %s", err, string(out))
	}
	return nil
}

// estimateChunks computes how many target-sized chunks cover sizeMB. A file
// just over the ceiling still yields one chunk and goes through the same
// encode-check-retry loop as any other.
func estimateChunks(sizeMB float64) int {
	n := int(math.Ceil(sizeMB / ChunkTargetSizeMB))
	if n < 1 {
		n = 1
	}
	return n
}

func fileSizeMB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return float64(info.Size()) / (1024 * 1024), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
