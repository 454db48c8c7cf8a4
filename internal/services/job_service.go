package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-tracker/internal/match"
	"github.com/justsurfingit/job-tracker/internal/models"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrInvalidStatus = errors.New("invalid status")
)

// Score bands follow the dashboard colouring.
const (
	strongScore   = 80
	moderateScore = 50
)

type JobFilter struct {
	Status  string
	Company string
}

// JobPatch holds the fields to change; nil means unchanged.
type JobPatch struct {
	Title         *string
	Company       *string
	Description   *string
	JobLink       *string
	Location      *string
	Status        *models.JobStatus
	ResumeVersion *string
	Notes         *string
	Assessment    *match.Assessment
}

type ScoreBands struct {
	Strong   int64 `json:"strong"`
	Moderate int64 `json:"moderate"`
	Weak     int64 `json:"weak"`
}

type JobStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	AverageScore float64          `json:"average_score"`
	ScoreBands   ScoreBands       `json:"score_bands"`
}

type JobService struct {
	DB *gorm.DB
}

func NewJobService(db *gorm.DB) *JobService {
	return &JobService{
		DB: db,
	}
}

// List returns jobs newest first. An empty or "All" status matches every
// status; company matches case-insensitively anywhere in the name.
func (s *JobService) List(ctx context.Context, f JobFilter) ([]models.Job, error) {
	q := s.DB.WithContext(ctx).Model(&models.Job{})

	if status := strings.TrimSpace(f.Status); status != "" && !strings.EqualFold(status, "all") {
		q = q.Where("status = ?", strings.ToLower(status))
	}
	if company := strings.TrimSpace(f.Company); company != "" {
		q = q.Where("company ILIKE ?", "%"+escapeLike(company)+"%")
	}

	var jobs []models.Job
	if err := q.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := s.DB.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobService) Create(ctx context.Context, job *models.Job) error {
	if job.Status == "" {
		job.Status = models.StatusWishlist
	}
	if !job.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, job.Status)
	}
	if err := s.DB.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *JobService) Update(ctx context.Context, id uuid.UUID, p JobPatch) (*models.Job, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := p.apply(job)
	if len(columns) == 0 {
		return job, nil
	}

	// Struct updates run the JSON serializer for skill_breakdown; map updates do not.
	if err := s.DB.WithContext(ctx).Model(job).Select(columns).Updates(job).Error; err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	return job, nil
}

func (p JobPatch) apply(job *models.Job) []string {
	var columns []string
	setString := func(column string, dst *string, v *string) {
		if v != nil {
			*dst = *v
			columns = append(columns, column)
		}
	}

	setString("title", &job.Title, p.Title)
	setString("company", &job.Company, p.Company)
	setString("description", &job.Description, p.Description)
	setString("job_link", &job.JobLink, p.JobLink)
	setString("location", &job.Location, p.Location)
	setString("resume_version", &job.ResumeVersion, p.ResumeVersion)
	setString("notes", &job.Notes, p.Notes)

	if p.Status != nil {
		job.Status = *p.Status
		columns = append(columns, "status")
	}
	if p.Assessment != nil {
		job.ApplyAssessment(*p.Assessment)
		columns = append(columns, "match_score", "strengths", "gaps", "skill_breakdown")
	}
	return columns
}

func (s *JobService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{})
	if res.Error != nil {
		return fmt.Errorf("delete job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Stats aggregates the jobs table for the dashboard.
func (s *JobService) Stats(ctx context.Context) (*JobStats, error) {
	var counts []struct {
		Status string
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Job{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}

	var agg struct {
		Average  float64
		Strong   int64
		Moderate int64
		Weak     int64
	}
	err = s.DB.WithContext(ctx).Model(&models.Job{}).
		Select(fmt.Sprintf(
			"COALESCE(AVG(match_score), 0)::float8 AS average, "+
				"COUNT(*) FILTER (WHERE match_score >= %d) AS strong, "+
				"COUNT(*) FILTER (WHERE match_score >= %d AND match_score < %d) AS moderate, "+
				"COUNT(*) FILTER (WHERE match_score < %d) AS weak",
			strongScore, moderateScore, strongScore, moderateScore)).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate match scores: %w", err)
	}

	stats := &JobStats{
		ByStatus:     make(map[string]int64, len(models.Statuses)),
		AverageScore: agg.Average,
		ScoreBands:   ScoreBands{Strong: agg.Strong, Moderate: agg.Moderate, Weak: agg.Weak},
	}
	for _, st := range models.Statuses {
		stats.ByStatus[string(st)] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}
	return stats, nil
}

// Companies lists the distinct company names being tracked.
func (s *JobService) Companies(ctx context.Context) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.Job{}).
		Distinct("company").
		Order("company").
		Pluck("company", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return names, nil
}

// ActiveJobsForCompany returns the company's jobs that are not yet in a
// terminal status.
func (s *JobService) ActiveJobsForCompany(ctx context.Context, company string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.DB.WithContext(ctx).
		Where("LOWER(company) = LOWER(?) AND status NOT IN ?", company,
			[]string{string(models.StatusOffer), string(models.StatusRejected)}).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list active jobs for %s: %w", company, err)
	}
	return jobs, nil
}

// SetStatus changes a job's status and records why in the job_events table.
func (s *JobService) SetStatus(ctx context.Context, job *models.Job, status models.JobStatus, eventType, details string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(job).Update("status", status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		event := models.JobEvent{
			JobID:     job.ID,
			EventType: eventType,
			Details:   details,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("record job event: %w", err)
		}
		return nil
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
