package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"voiceforge/internal/job"
	"voiceforge/internal/telemetry"
	"voiceforge/internal/video"
	"voiceforge/internal/voice"
)

type generateRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id"`
	Language string `json:"language"`
}

type generateResponse struct {
	TaskID  string     `json:"task_id"`
	Status  job.Status `json:"status"`
	Message string     `json:"message"`
}

type statusResponse struct {
	TaskID      string     `json:"task_id"`
	Status      job.Status `json:"status"`
	DownloadURL string     `json:"download_url,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type videoDownloadRequest struct {
	URL           string `json:"url"`
	ProjectFolder string `json:"project_folder"`
}

type videoConcatRequest struct {
	ProjectFolder string `json:"project_folder"`
}

type videoMergeRequest struct {
	VideoPath string `json:"video_path"`
	AudioPath string `json:"audio_path"`
}

// API exposes the synthesis and media endpoints over gin.
type API struct {
	runner    *job.Runner
	store     *job.Store
	voices    *voice.Library
	pipeline  *video.Pipeline
	outputDir string
	finalDir  string
	apiKey    string
}

func NewAPI(runner *job.Runner, store *job.Store, voices *voice.Library, pipeline *video.Pipeline, outputDir, finalDir, apiKey string) *API {
	return &API{
		runner:    runner,
		store:     store,
		voices:    voices,
		pipeline:  pipeline,
		outputDir: outputDir,
		finalDir:  finalDir,
		apiKey:    apiKey,
	}
}

// RegisterRoutes registers all routes on the provided gin engine. Everything
// except /metrics sits behind the API-key check.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))

	authed := router.Group("/", APIKeyAuth(a.apiKey))
	{
		authed.POST("/generate", a.Generate)
		authed.GET("/status/:task_id", a.Status)
		authed.GET("/download/:task_id", a.Download)
		authed.POST("/voices/upload", a.UploadVoice)
		authed.GET("/voices/list", a.ListVoices)
		authed.DELETE("/voices/:voice_id", a.DeleteVoice)
		authed.POST("/videos/download", a.DownloadVideo)
		authed.POST("/videos/concat", a.ConcatVideos)
		authed.POST("/videos/merge", a.MergeVideo)
		authed.GET("/final/:filename", a.ServeFinal)
	}
}

// Generate submits a synthesis job and returns immediately.
func (a *API) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" || req.VoiceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text and voice_id are required"})
		return
	}
	if req.Language == "" {
		req.Language = "auto"
	}
	submitted := a.runner.Submit(req.Text, req.VoiceID, req.Language)
	log.Info().Str("task_id", submitted.ID).Str("voice_id", req.VoiceID).Msg("synthesis job submitted")
	c.JSON(http.StatusOK, generateResponse{
		TaskID:  submitted.ID,
		Status:  submitted.Status,
		Message: "Job submitted successfully. Poll /status/{task_id} for results.",
	})
}

// Status reports the current lifecycle state of a job.
func (a *API) Status(c *gin.Context) {
	taskID := c.Param("task_id")
	foundJob, ok := a.store.Get(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task ID not found"})
		return
	}
	resp := statusResponse{
		TaskID: foundJob.ID,
		Status: foundJob.Status,
		Error:  foundJob.Error,
	}
	if foundJob.Status == job.StatusCompleted {
		resp.DownloadURL = "/download/" + foundJob.ID
	}
	c.JSON(http.StatusOK, resp)
}

// Download serves the synthesized audio of a completed job.
func (a *API) Download(c *gin.Context) {
	taskID := c.Param("task_id")
	foundJob, ok := a.store.Get(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task ID not found"})
		return
	}
	if foundJob.Status != job.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task not completed yet"})
		return
	}
	audioPath := filepath.Join(a.outputDir, foundJob.OutputFilename)
	if _, err := os.Stat(audioPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File lost on server"})
		return
	}
	c.FileAttachment(audioPath, "tts_"+foundJob.ID+".wav")
}

// UploadVoice stores a reference voice sample.
func (a *API) UploadVoice(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	uploaded, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File read failed"})
		return
	}
	defer func() { _ = uploaded.Close() }()

	sample, err := a.voices.Save(fileHeader.Filename, uploaded)
	if err != nil {
		if errors.Is(err, voice.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported audio format"})
			return
		}
		log.Error().Err(err).Msg("voice upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File write failed"})
		return
	}
	log.Info().Str("voice_id", sample.VoiceID).Int64("bytes", sample.SizeBytes).Msg("voice sample uploaded")
	c.JSON(http.StatusOK, sample)
}

// ListVoices returns metadata for every stored voice sample.
func (a *API) ListVoices(c *gin.Context) {
	samples, err := a.voices.List()
	if err != nil {
		log.Error().Err(err).Msg("voice listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list voices"})
		return
	}
	if samples == nil {
		samples = []voice.Sample{}
	}
	c.JSON(http.StatusOK, samples)
}

// DeleteVoice removes a voice sample by id prefix.
func (a *API) DeleteVoice(c *gin.Context) {
	voiceID := c.Param("voice_id")
	if err := a.voices.Delete(voiceID); err != nil {
		if errors.Is(err, voice.ErrVoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voice ID not found"})
			return
		}
		log.Error().Str("voice_id", voiceID).Err(err).Msg("voice delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "voice_id": voiceID})
}

// DownloadVideo fetches a remote clip into a project folder.
func (a *API) DownloadVideo(c *gin.Context) {
	var req videoDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.ProjectFolder == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and project_folder are required"})
		return
	}
	result, err := a.pipeline.Download(c.Request.Context(), req.URL, req.ProjectFolder)
	if err != nil {
		if errors.Is(err, video.ErrUpstream) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		log.Error().Str("project", req.ProjectFolder).Err(err).Msg("video download failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "downloaded",
		"filename":   result.Filename,
		"file_path":  result.Path,
		"size_bytes": result.SizeBytes,
	})
}

// ConcatVideos joins all clips of a project in filename order.
func (a *API) ConcatVideos(c *gin.Context) {
	var req videoConcatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectFolder == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_folder is required"})
		return
	}
	result, err := a.pipeline.Concat(c.Request.Context(), req.ProjectFolder)
	if err != nil {
		switch {
		case errors.Is(err, video.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, video.ErrNotEnoughFiles):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error().Str("project", req.ProjectFolder).Err(err).Msg("concat failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "concatenated",
		"file_path":  result.Path,
		"size_bytes": result.SizeBytes,
	})
}

// MergeVideo combines one video with one audio track.
func (a *API) MergeVideo(c *gin.Context) {
	var req videoMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoPath == "" || req.AudioPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_path and audio_path are required"})
		return
	}
	result, err := a.pipeline.Merge(c.Request.Context(), req.VideoPath, req.AudioPath)
	if err != nil {
		if errors.Is(err, video.ErrInputNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("merge failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "merged",
		"file_path":    result.Path,
		"download_url": "/final/" + result.Filename,
		"size_bytes":   result.SizeBytes,
	})
}

// ServeFinal serves a merged artifact from the final-outputs directory.
func (a *API) ServeFinal(c *gin.Context) {
	// Base guards against traversal out of the final directory
	filename := filepath.Base(c.Param("filename"))
	finalPath := filepath.Join(a.finalDir, filename)
	if _, err := os.Stat(finalPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(finalPath, filename)
}
