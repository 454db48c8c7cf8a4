package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-tracker/internal/match"
	"gorm.io/gorm"
)

type JobStatus string

const (
	StatusWishlist  JobStatus = "wishlist"
	StatusApplied   JobStatus = "applied"
	StatusInterview JobStatus = "interview"
	StatusOffer     JobStatus = "offer"
	StatusRejected  JobStatus = "rejected"
)

var Statuses = []JobStatus{StatusWishlist, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

func (s JobStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal statuses are never changed by the inbox watcher.
func (s JobStatus) Terminal() bool {
	return s == StatusOffer || s == StatusRejected
}

type Job struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title         string    `gorm:"not null" json:"title"`
	Company       string    `gorm:"not null;index" json:"company"`
	Description   string    `gorm:"type:text" json:"description"`
	JobLink       string    `json:"job_link,omitempty"`
	Location      string    `json:"location,omitempty"`
	Status        JobStatus `gorm:"type:text;not null;index" json:"status"`
	ResumeVersion string    `json:"resume_version,omitempty"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`

	// Assessment fields, written together from one scoring run.
	MatchScore     int                     `json:"match_score"`
	Strengths      string                  `gorm:"type:text" json:"strengths"`
	Gaps           string                  `gorm:"type:text" json:"gaps"`
	SkillBreakdown []match.SkillAssessment `gorm:"type:jsonb;serializer:json" json:"skill_breakdown"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusWishlist
	}
	return nil
}

// ApplyAssessment copies a scoring result onto the job.
func (j *Job) ApplyAssessment(a match.Assessment) {
	j.MatchScore = a.Score
	j.Strengths = a.Strengths
	j.Gaps = a.Gaps
	j.SkillBreakdown = a.SkillBreakdown
}

type JobEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JobID     uuid.UUID `gorm:"type:uuid;index" json:"job_id"`
	EventType string    `json:"event_type"`
	Details   string    `gorm:"type:text" json:"details"`
}

// MailboxState keeps the Gmail history bookmark between sync cycles.
type MailboxState struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	LastHistoryID uint64 `json:"last_history_id"`
	UpdatedAt     time.Time
}

type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}
