// Package engine is the boundary to the standalone synthesis model server.
// The service itself never loads a model; it ships text plus a reference
// audio path to the engine process and gets wav bytes back.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const synthesizePath = "/v1/synthesize"

var (
	ErrTextEmpty  = errors.New("text cannot be empty")
	ErrEmptyAudio = errors.New("engine returned empty audio data")
)

// Synthesizer produces audio samples for text conditioned on a reference
// voice recording. Implementations are expected to block for the full
// duration of generation; the caller serializes access.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, referencePath, language string) ([]byte, error)
}

type synthesizeRequest struct {
	Text          string `json:"text"`
	ReferencePath string `json:"reference_path"`
	Language      string `json:"language"`
}

// HTTPEngine talks to the model server over HTTP. The engine shares the
// voice directory with this service, so reference audio travels by path,
// not by payload.
type HTTPEngine struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPEngine creates a client for the engine at baseURL. The client
// carries no timeout: generation time is unbounded by contract.
func NewHTTPEngine(baseURL string) *HTTPEngine {
	return &HTTPEngine{
		httpClient: &http.Client{},
		baseURL:    baseURL,
	}
}

// NewHTTPEngineWithClient allows tests to inject a custom HTTP client.
func NewHTTPEngineWithClient(baseURL string, client *http.Client) *HTTPEngine {
	return &HTTPEngine{httpClient: client, baseURL: baseURL}
}

// Synthesize posts the generation request and returns the raw wav bytes.
func (e *HTTPEngine) Synthesize(ctx context.Context, text, referencePath, language string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	payload, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ReferencePath: referencePath,
		Language:      language,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+synthesizePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine returned %s: %s", resp.Status, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
