// Package voice manages the flat directory of reference audio samples used
// to condition synthesis. The directory listing is the sole source of truth;
// there is no index file.
package voice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	fileutil "voiceforge/internal/file"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrVoiceNotFound     = errors.New("voice not found")
)

var allowedExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".flac": {},
	".m4a":  {},
}

// Sample describes one stored reference recording.
type Sample struct {
	VoiceID   string `json:"voice_id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

// Library is a voice sample collection rooted at a single directory.
// Samples are stored as {voice_id}{extension}.
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Save stores the uploaded sample under a freshly generated voice id,
// keeping the original extension. The returned Sample reports the client's
// filename, not the stored one.
func (l *Library) Save(originalFilename string, reader io.Reader) (Sample, error) {
	extension := strings.ToLower(filepath.Ext(originalFilename))
	if _, ok := allowedExtensions[extension]; !ok {
		return Sample{}, ErrUnsupportedFormat
	}

	voiceID := uuid.NewString()
	storedPath := filepath.Join(l.dir, voiceID+extension)
	written, err := fileutil.CopyAtomic(storedPath, reader)
	if err != nil {
		return Sample{}, fmt.Errorf("store sample: %w", err)
	}

	return Sample{VoiceID: voiceID, Filename: originalFilename, SizeBytes: written}, nil
}

// List returns metadata for every stored sample.
func (l *Library) List() ([]Sample, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read voice dir: %w", err)
	}
	samples := make([]Sample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		samples = append(samples, Sample{
			VoiceID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Filename:  name,
			SizeBytes: info.Size(),
		})
	}
	return samples, nil
}

// Resolve finds the stored sample whose filename starts with voiceID and
// returns its full path. When several filenames share the prefix the first
// one in directory-iteration order wins; that order is filesystem-dependent.
func (l *Library) Resolve(voiceID string) (string, bool) {
	if voiceID == "" {
		return "", false
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), voiceID) {
			return filepath.Join(l.dir, entry.Name()), true
		}
	}
	return "", false
}

// Delete removes the sample matched by prefix, same resolution rules as
// Resolve.
func (l *Library) Delete(voiceID string) error {
	path, ok := l.Resolve(voiceID)
	if !ok {
		return ErrVoiceNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove sample: %w", err)
	}
	return nil
}
