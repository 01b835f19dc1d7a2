// Package video implements the stateless media pipeline: fetching remote
// clips into project folders, concatenating a project in filename order,
// and merging a video with an audio track. All heavy lifting is delegated
// to ffmpeg/ffprobe subprocesses.
package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"voiceforge/internal/cleanup"
	fileutil "voiceforge/internal/file"
	"voiceforge/internal/telemetry"
)

var (
	ErrProjectNotFound = errors.New("project folder not found")
	ErrNotEnoughFiles  = errors.New("need at least 2 video files in folder")
	ErrInputNotFound   = errors.New("input file not found")
	ErrUpstream        = errors.New("upstream fetch failed")
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
	".flv":  {},
}

// Options configures a Pipeline.
type Options struct {
	ProjectsDir string
	OutputDir   string
	FinalDir    string
	FFmpegPath  string
	FFprobePath string
	Retention   time.Duration
}

// Pipeline holds the directory roots and collaborators for the three media
// operations. It keeps no per-request state.
type Pipeline struct {
	projectsDir string
	outputDir   string
	finalDir    string
	ffmpegPath  string
	ffprobePath string
	retention   time.Duration
	httpClient  *http.Client
	runner      commandRunner
	janitor     *cleanup.Janitor
}

func NewPipeline(opts Options, janitor *cleanup.Janitor) *Pipeline {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	return &Pipeline{
		projectsDir: opts.ProjectsDir,
		outputDir:   opts.OutputDir,
		finalDir:    opts.FinalDir,
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		retention:   opts.Retention,
		httpClient:  &http.Client{},
		janitor:     janitor,
		runner:      &execRunner{},
	}
}

// DownloadResult describes a fetched clip.
type DownloadResult struct {
	Filename  string
	Path      string
	SizeBytes int64
}

// ConcatResult describes a finished concatenation.
type ConcatResult struct {
	Path      string
	SizeBytes int64
}

// MergeResult describes a finished merge.
type MergeResult struct {
	Filename  string
	Path      string
	SizeBytes int64
}

// Download fetches url into the project folder, creating it if absent.
// Filenames carry a monotonically increasing ordering id so that clips
// downloaded later sort after earlier ones; Concat depends on this.
func (p *Pipeline) Download(ctx context.Context, rawURL, project string) (DownloadResult, error) {
	projectDir := p.projectDir(project)
	if err := fileutil.EnsureDir(projectDir); err != nil {
		return DownloadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DownloadResult{}, fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	filename := downloadFilename(rawURL)
	destPath := filepath.Join(projectDir, filename)
	written, err := fileutil.CopyAtomic(destPath, resp.Body)
	if err != nil {
		return DownloadResult{}, err
	}

	telemetry.VideosDownloaded.Inc()
	log.Info().Str("project", project).Str("file", filename).Int64("bytes", written).Msg("video downloaded")
	return DownloadResult{Filename: filename, Path: destPath, SizeBytes: written}, nil
}

// Concat joins every recognized video file in the project folder, sorted by
// filename ascending, into {project}_final.mp4 in the output directory.
// On success the source folder is handed to the janitor and stays usable
// until the retention window elapses.
func (p *Pipeline) Concat(ctx context.Context, project string) (ConcatResult, error) {
	projectDir := p.projectDir(project)
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return ConcatResult{}, ErrProjectNotFound
		}
		return ConcatResult{}, fmt.Errorf("read project dir: %w", err)
	}

	clips := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := videoExtensions[ext]; ok {
			clips = append(clips, entry.Name())
		}
	}
	if len(clips) < minConcatClips {
		return ConcatResult{}, fmt.Errorf("%w, found %d", ErrNotEnoughFiles, len(clips))
	}
	sort.Strings(clips)

	listPath, err := writeConcatList(projectDir, clips)
	if err != nil {
		return ConcatResult{}, err
	}
	defer func() { _ = os.Remove(listPath) }()

	if err := fileutil.EnsureDir(p.outputDir); err != nil {
		return ConcatResult{}, err
	}
	outputPath := filepath.Join(p.outputDir, filepath.Base(project)+"_final.mp4")
	_, err = p.runner.Run(ctx, p.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
	if err != nil {
		return ConcatResult{}, fmt.Errorf("concat: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return ConcatResult{}, fmt.Errorf("stat output: %w", err)
	}

	p.janitor.Schedule(projectDir, p.retention)
	telemetry.VideosConcatenated.Inc()
	log.Info().Str("project", project).Int("clips", len(clips)).Str("output", outputPath).Msg("project concatenated")
	return ConcatResult{Path: outputPath, SizeBytes: info.Size()}, nil
}

// Merge produces a video whose duration equals the audio's: the video is
// truncated when longer and looped when shorter, and the audio replaces any
// existing track. The output lands in the final directory under a fresh
// unique name.
func (p *Pipeline) Merge(ctx context.Context, videoPath, audioPath string) (MergeResult, error) {
	for _, inputPath := range []string{videoPath, audioPath} {
		if _, err := os.Stat(inputPath); err != nil {
			return MergeResult{}, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
	}

	videoDuration, err := p.probeDuration(ctx, videoPath)
	if err != nil {
		return MergeResult{}, err
	}
	audioDuration, err := p.probeDuration(ctx, audioPath)
	if err != nil {
		return MergeResult{}, err
	}

	if err := fileutil.EnsureDir(p.finalDir); err != nil {
		return MergeResult{}, err
	}
	filename := uuid.NewString() + ".mp4"
	outputPath := filepath.Join(p.finalDir, filename)

	args := []string{"-y"}
	if videoDuration < audioDuration {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args,
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", strconv.FormatFloat(audioDuration, 'f', 3, 64),
		"-c:v", "libx264",
		"-c:a", "aac",
		outputPath,
	)
	if _, err := p.runner.Run(ctx, p.ffmpegPath, args...); err != nil {
		return MergeResult{}, fmt.Errorf("merge: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return MergeResult{}, fmt.Errorf("stat output: %w", err)
	}

	telemetry.VideosMerged.Inc()
	log.Info().Str("video", videoPath).Str("audio", audioPath).Str("output", outputPath).Msg("video and audio merged")
	return MergeResult{Filename: filename, Path: outputPath, SizeBytes: info.Size()}, nil
}

const minConcatClips = 2

func (p *Pipeline) projectDir(project string) string {
	// Base strips any path components a client might smuggle in
	return filepath.Join(p.projectsDir, filepath.Base(project))
}

// probeDuration asks ffprobe for the container duration in seconds.
func (p *Pipeline) probeDuration(ctx context.Context, mediaPath string) (float64, error) {
	out, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", mediaPath, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", mediaPath, err)
	}
	return duration, nil
}

// writeConcatList emits the ffmpeg concat-demuxer list file next to the
// clips so relative entries resolve inside the project folder.
func writeConcatList(projectDir string, clips []string) (string, error) {
	var sb strings.Builder
	for _, clip := range clips {
		sb.WriteString("file '")
		sb.WriteString(clip)
		sb.WriteString("'\n")
	}
	listFile, err := os.CreateTemp(projectDir, ".concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create list file: %w", err)
	}
	if _, err := listFile.WriteString(sb.String()); err != nil {
		_ = listFile.Close()
		_ = os.Remove(listFile.Name())
		return "", fmt.Errorf("write list file: %w", err)
	}
	if err := listFile.Close(); err != nil {
		_ = os.Remove(listFile.Name())
		return "", fmt.Errorf("close list file: %w", err)
	}
	return listFile.Name(), nil
}

// orderedID returns an id that sorts lexicographically in generation order.
// Zero-padding keeps alphabetical and chronological order identical.
func orderedID() string {
	return fmt.Sprintf("%020d", time.Now().UnixNano())
}

// downloadFilename derives the destination name for a fetched clip:
// {orderedID}_{basename} when the URL carries a usable basename with an
// extension, {orderedID}.mp4 otherwise.
func downloadFilename(rawURL string) string {
	id := orderedID()
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return id + ".mp4"
	}
	base := path.Base(parsed.Path)
	if base == "/" || base == "." || base == "" || path.Ext(base) == "" {
		return id + ".mp4"
	}
	return id + "_" + base
}
