package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/justsurfingit/job-tracker/internal/dtos"
	"github.com/justsurfingit/job-tracker/internal/extractor"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/justsurfingit/job-tracker/internal/match"
	"github.com/justsurfingit/job-tracker/internal/models"
	"github.com/justsurfingit/job-tracker/internal/services"
	"go.uber.org/zap"
)

type JobStore interface {
	List(ctx context.Context, f services.JobFilter) ([]models.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, id uuid.UUID, p services.JobPatch) (*models.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*services.JobStats, error)
}

type Scorer interface {
	ScoreMatch(ctx context.Context, resumeText, jobDescription string) match.Assessment
}

type JobExtractor interface {
	ExtractJobDetails(ctx context.Context, rawHTML string) (json.RawMessage, error)
}

type ResumeParser interface {
	ExtractFile(contentType, filename string, r io.Reader) (string, error)
}

// JobHandler wires the job store, the match engine and the document
// extractor to HTTP.
type JobHandler struct {
	Jobs           JobStore
	Scorer         Scorer
	Extractor      JobExtractor
	Parser         ResumeParser
	MaxUploadBytes int64
	logger         *zap.Logger
}

func NewJobHandler(jobs JobStore, scorer Scorer, ext JobExtractor, parser ResumeParser, maxUpload int64, log *zap.Logger) *JobHandler {
	return &JobHandler{
		Jobs:           jobs,
		Scorer:         scorer,
		Extractor:      ext,
		Parser:         parser,
		MaxUploadBytes: maxUpload,
		logger:         logger.OrNop(log),
	}
}

// ListJobs is GET /jobs?status=&company=
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.Jobs.List(c.Request.Context(), services.JobFilter{
		Status:  c.Query("status"),
		Company: c.Query("company"),
	})
	if err != nil {
		h.storeError(c, err, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// CreateJob scores the resume against the description and stores the job
// with its assessment. Scoring never blocks creation.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	status := models.JobStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		status = models.StatusWishlist
	}
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + req.Status})
		return
	}

	assessment := h.Scorer.ScoreMatch(c.Request.Context(), req.ResumeText, req.Description)

	job := &models.Job{
		Title:         strings.TrimSpace(req.Title),
		Company:       strings.TrimSpace(req.Company),
		Description:   req.Description,
		JobLink:       req.JobLink,
		Location:      req.Location,
		Status:        status,
		ResumeVersion: req.ResumeVersion,
		Notes:         req.Notes,
	}
	job.ApplyAssessment(assessment)

	if err := h.Jobs.Create(c.Request.Context(), job); err != nil {
		h.storeError(c, err, "Failed to create job")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Job added successfully", "job": job})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Failed to get job")
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJob is PATCH /jobs/:id. A supplied resume_text re-scores the job
// against the new or stored description.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dtos.JobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	patch := services.JobPatch{
		Title:         req.Title,
		Company:       req.Company,
		Description:   req.Description,
		JobLink:       req.JobLink,
		Location:      req.Location,
		ResumeVersion: req.ResumeVersion,
		Notes:         req.Notes,
	}
	if req.Status != nil {
		st := models.JobStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + *req.Status})
			return
		}
		patch.Status = &st
	}

	if req.ResumeText != nil {
		description := ""
		if req.Description != nil {
			description = *req.Description
		} else {
			current, err := h.Jobs.Get(c.Request.Context(), id)
			if err != nil {
				h.storeError(c, err, "Failed to get job")
				return
			}
			description = current.Description
		}
		assessment := h.Scorer.ScoreMatch(c.Request.Context(), *req.ResumeText, description)
		patch.Assessment = &assessment
	}

	job, err := h.Jobs.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.storeError(c, err, "Failed to update job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job updated successfully", "job": job})
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Jobs.Delete(c.Request.Context(), id); err != nil {
		h.storeError(c, err, "Failed to delete job")
		return
	}
	c.Status(http.StatusNoContent)
}

// JobStats is GET /jobs/stats, the dashboard aggregates.
func (h *JobHandler) JobStats(c *gin.Context) {
	stats, err := h.Jobs.Stats(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "Failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Match scores a resume against a job description without storing
// anything.
func (h *JobHandler) Match(c *gin.Context) {
	var req dtos.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" || strings.TrimSpace(req.JobDescription) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume_text and job_description are required"})
		return
	}
	c.JSON(http.StatusOK, h.Scorer.ScoreMatch(c.Request.Context(), req.ResumeText, req.JobDescription))
}

// ParseResume is POST /resume/parse with a multipart "file" field.
func (h *JobHandler) ParseResume(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload: " + err.Error()})
		return
	}
	defer file.Close()

	text, err := h.Parser.ExtractFile(header.Header.Get("Content-Type"), header.Filename, file)
	switch {
	case errors.Is(err, extractor.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type. Please upload PDF or DOCX."})
		return
	case errors.Is(err, extractor.ErrNoText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Warn("resume extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":   header.Filename,
		"characters": len([]rune(text)),
		"text":       text,
	})
}

// ParseJob is the POST /jobs/extract endpoint
func (h *JobHandler) ParseJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	extracted, err := h.Extractor.ExtractJobDetails(c.Request.Context(), req.RawHTML)
	if errors.Is(err, services.ErrLLMUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI extraction is unavailable: no language model configured"})
		return
	}
	if err != nil {
		h.logger.Error("job extraction failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI Extraction failed: " + err.Error()})
		return
	}

	// RawMessage keeps the model's JSON from being re-escaped as a string.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    extracted,
	})
}

func (h *JobHandler) storeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, services.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg + ": " + err.Error()})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}
