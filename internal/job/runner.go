package job

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"voiceforge/internal/engine"
	fileutil "voiceforge/internal/file"
	"voiceforge/internal/telemetry"
)

// VoiceResolver maps a voice id to the path of its stored reference audio.
type VoiceResolver interface {
	Resolve(voiceID string) (string, bool)
}

// Runner executes submitted jobs in the background. The synthesis engine is
// a single exclusive resource, so every execution funnels through a size-1
// gate; everything before and after the engine call runs unserialized.
type Runner struct {
	store     *Store
	voices    VoiceResolver
	synth     engine.Synthesizer
	gate      chan struct{}
	outputDir string
	workersWG sync.WaitGroup
	mu        sync.Mutex
	baseCtx   context.Context
}

func NewRunner(store *Store, voices VoiceResolver, synth engine.Synthesizer, outputDir string) *Runner {
	return &Runner{
		store:     store,
		voices:    voices,
		synth:     synth,
		gate:      make(chan struct{}, 1),
		outputDir: outputDir,
		baseCtx:   context.Background(),
	}
}

// Submit records the job as queued and schedules background execution. It
// never blocks on synthesis; the returned snapshot is immediately visible
// to status polls.
func (r *Runner) Submit(text, voiceID, language string) Job {
	newJob := r.store.Create()
	telemetry.JobsSubmitted.Inc()

	r.workersWG.Add(1)
	go func() {
		defer r.workersWG.Done()
		r.process(newJob.ID, text, voiceID, language)
	}()
	return newJob
}

// SetBaseContext sets the context governing in-flight engine calls.
// Intended to be set at process startup and cancelled during shutdown.
func (r *Runner) SetBaseContext(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()
}

// WaitAll blocks until all in-flight job workers finish or the context is
// done. Returns true if all workers finished, false if timed out.
func (r *Runner) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		r.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// process drives one job through its lifecycle. Every failure is terminal
// and lands on the job record; nothing propagates back to the submitter.
func (r *Runner) process(jobID, text, voiceID, language string) {
	referencePath, ok := r.voices.Resolve(voiceID)
	if !ok {
		// unknown voice fails without ever touching the compute gate
		r.fail(jobID, voiceNotFoundReason)
		return
	}

	audio, err := r.runSynthesis(jobID, text, referencePath, language)
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}

	outputFilename := uuid.NewString() + ".wav"
	if err := fileutil.WriteAtomic(filepath.Join(r.outputDir, outputFilename), audio); err != nil {
		r.fail(jobID, err.Error())
		return
	}

	if err := r.store.Complete(jobID, outputFilename); err != nil {
		log.Warn().Str("task_id", jobID).Err(err).Msg("complete transition rejected")
		return
	}
	telemetry.JobsCompleted.Inc()
	log.Info().Str("task_id", jobID).Str("output", outputFilename).Msg("synthesis completed")
}

// runSynthesis holds the compute gate for the duration of the engine call.
// The deferred release guarantees the gate opens again on any failure path.
func (r *Runner) runSynthesis(jobID, text, referencePath, language string) ([]byte, error) {
	r.gate <- struct{}{}
	defer func() { <-r.gate }()

	if err := r.store.MarkProcessing(jobID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	ctx := r.baseCtx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	return r.synth.Synthesize(ctx, text, referencePath, language)
}

func (r *Runner) fail(jobID, reason string) {
	if err := r.store.Fail(jobID, reason); err != nil {
		log.Warn().Str("task_id", jobID).Err(err).Msg("fail transition rejected")
		return
	}
	telemetry.JobsFailed.Inc()
	log.Warn().Str("task_id", jobID).Str("reason", reason).Msg("synthesis job failed")
}
