package dtos

type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}

type JobCreationRequest struct {
	Title       string `json:"title" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Description string `json:"description"`
	ResumeText  string `json:"resume_text"`

	// Optional Fields
	Status        string `json:"status"` // Defaults to "wishlist" if empty
	ResumeVersion string `json:"resume_version"`
	Notes         string `json:"notes"`
	JobLink       string `json:"job_link"`
	Location      string `json:"location"`
}

// JobUpdateRequest is a partial update; absent fields are left unchanged.
// Supplying resume_text re-scores the job against the new or stored
// description.
type JobUpdateRequest struct {
	Title         *string `json:"title"`
	Company       *string `json:"company"`
	Description   *string `json:"description"`
	ResumeText    *string `json:"resume_text"`
	Status        *string `json:"status"`
	ResumeVersion *string `json:"resume_version"`
	Notes         *string `json:"notes"`
	JobLink       *string `json:"job_link"`
	Location      *string `json:"location"`
}

type MatchRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}
