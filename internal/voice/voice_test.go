package voice

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveStoresUnderGeneratedID(t *testing.T) {
	lib := NewLibrary(t.TempDir())

	sample, err := lib.Save("My Recording.WAV", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sample.VoiceID == "" {
		t.Fatalf("expected generated voice id")
	}
	if sample.Filename != "My Recording.WAV" {
		t.Fatalf("expected original filename in metadata, got %q", sample.Filename)
	}
	if sample.SizeBytes != int64(len("audio-bytes")) {
		t.Fatalf("unexpected size: %d", sample.SizeBytes)
	}

	storedPath, ok := lib.Resolve(sample.VoiceID)
	if !ok {
		t.Fatalf("expected resolve to find stored sample")
	}
	if filepath.Ext(storedPath) != ".wav" {
		t.Fatalf("expected lowercased extension, got %q", storedPath)
	}
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	if _, err := lib.Save("voice.exe", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := lib.Save("noextension", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestListReturnsAllSamples(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)

	if _, err := lib.Save("a.wav", strings.NewReader("aa")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := lib.Save("b.mp3", strings.NewReader("bbb")); err != nil {
		t.Fatalf("save: %v", err)
	}

	samples, err := lib.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s.VoiceID == "" || s.SizeBytes == 0 {
			t.Fatalf("incomplete metadata: %+v", s)
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "does-not-exist"))
	samples, err := lib.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected empty listing, got %d", len(samples))
	}
}

func TestResolveByPrefix(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	if err := os.WriteFile(filepath.Join(dir, "abc123.wav"), []byte("x"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	path, ok := lib.Resolve("abc")
	if !ok || filepath.Base(path) != "abc123.wav" {
		t.Fatalf("expected prefix match, got %q ok=%v", path, ok)
	}
	if _, ok := lib.Resolve("zzz"); ok {
		t.Fatalf("expected no match")
	}
	if _, ok := lib.Resolve(""); ok {
		t.Fatalf("empty voice id must not match")
	}
}

// Two samples sharing a prefix resolve to exactly one of them; which one is
// filesystem-dependent and deliberately not pinned.
func TestResolveAmbiguousPrefixPicksOne(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	for _, name := range []string{"dup-one.wav", "dup-two.wav"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	path, ok := lib.Resolve("dup")
	if !ok {
		t.Fatalf("expected a match")
	}
	base := filepath.Base(path)
	if base != "dup-one.wav" && base != "dup-two.wav" {
		t.Fatalf("resolved outside the candidate set: %q", base)
	}
}

func TestDeleteRemovesSample(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	sample, err := lib.Save("gone.flac", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := lib.Delete(sample.VoiceID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := lib.Resolve(sample.VoiceID); ok {
		t.Fatalf("sample should be gone")
	}
	if err := lib.Delete(sample.VoiceID); !errors.Is(err, ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound, got %v", err)
	}
}
