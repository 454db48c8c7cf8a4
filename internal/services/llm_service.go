package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/justsurfingit/job-tracker/internal/match"
	"github.com/justsurfingit/job-tracker/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// ErrLLMUnavailable is returned by LLM-only features when no usable
// credential was configured at startup.
var ErrLLMUnavailable = errors.New("language model is not configured")

const maxPostingChars = 20000

// Email classification outcomes besides a job status.
const (
	EmailNoChange = "NO_CHANGE"
	EmailUnknown  = "UNKNOWN"
)

type LLMService struct {
	// Client is nil when the process runs without a language model.
	Client llms.Model
	Model  string
	cfg    config.LLMConfig
	logger *zap.Logger
}

// NewLLMService builds the process-wide model client once. A missing or
// malformed credential is not an error: the service starts without a
// client and scoring uses the keyword fallback.
func NewLLMService(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (*LLMService, error) {
	log = logger.OrNop(log)
	svc := &LLMService{Model: cfg.ModelName(), cfg: cfg, logger: log}

	if !cfg.CredentialUsable() {
		log.Warn("llm credential not found or malformed, using fallback match engine",
			zap.String("provider", cfg.Provider))
		return svc, nil
	}

	var (
		client llms.Model
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(svc.Model),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
	case config.ProviderGoogleAI:
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(svc.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	log.Info("llm client ready", zap.String("provider", cfg.Provider), zap.String("model", svc.Model))
	svc.Client = client
	return svc, nil
}

func (s *LLMService) Available() bool {
	return s != nil && s.Client != nil
}

// Completer returns the match engine's view of the client, or nil when no
// model is configured.
func (s *LLMService) Completer() match.Completer {
	if !s.Available() {
		return nil
	}
	return match.NewLangChainCompleter(s.Client)
}

// NewMatchEngine wires the scoring engine to this client and configuration.
func (s *LLMService) NewMatchEngine() *match.Engine {
	return match.New(match.Options{
		Completer:    s.Completer(),
		Breaker:      match.NewBreaker(s.cfg.Breaker, s.logger),
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
		Timeout:      s.cfg.Timeout,
		Model:        s.Model,
		MaxLogLength: s.cfg.MaxLogLength,
		Logger:       s.logger,
	})
}

func (s *LLMService) generate(ctx context.Context, prompt string) (string, error) {
	if !s.Available() {
		return "", ErrLLMUnavailable
	}
	// The Gemini client talks gRPC and ignores http.Client timeouts.
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	resp, err := s.Client.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "Only return valid JSON. No markdown."),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithTemperature(0),
		llms.WithMaxTokens(s.cfg.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errors.New("language model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company": "Name of the company (e.g., Google, StartupInc)",
    "title": "Job title (e.g., Senior Data Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "tech_stack": ["Array", "of", "technologies", "mentioned"],
    "salary_range": "The salary string if explicitly mentioned, otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractJobDetails turns a raw job posting into a JSON object the client
// can use to prefill a new job.
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (json.RawMessage, error) {
	rawHTML = clip(rawHTML, maxPostingChars)

	resp, err := s.generate(ctx, fmt.Sprintf(jobExtractionPrompt, rawHTML))
	if err != nil {
		return nil, err
	}

	body, ok := match.ExtractJSON(resp)
	if !ok || !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("model returned invalid JSON: %s", logger.TruncateForLog(resp, 120))
	}
	return json.RawMessage(body), nil
}

const emailStatusPrompt = `
You read emails about job applications to %s.
Decide what the email means for the application status.

Return STRICT JSON ONLY:
{"status": "<applied|interview|offer|rejected|NO_CHANGE|UNKNOWN>", "summary": "<one sentence>"}

- "applied": confirmation that the application was received.
- "interview": an invitation to interview, a screening call or an assessment.
- "offer": a job offer.
- "rejected": the application will not move forward.
- "NO_CHANGE": newsletters, reminders, or updates that do not change the status.
- "UNKNOWN": the email is unrelated or unclear.

SUBJECT:
%s

BODY:
%s
`

type EmailStatus struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// JobStatus returns the status to move to, and false for NO_CHANGE/UNKNOWN.
func (e EmailStatus) JobStatus() (models.JobStatus, bool) {
	st := models.JobStatus(strings.ToLower(strings.TrimSpace(e.Status)))
	if !st.Valid() || st == models.StatusWishlist {
		return "", false
	}
	return st, true
}

// AnalyzeEmailStatus classifies a recruiter email.
func (s *LLMService) AnalyzeEmailStatus(ctx context.Context, company, subject, body string) (EmailStatus, error) {
	body = clip(body, maxPostingChars)

	resp, err := s.generate(ctx, fmt.Sprintf(emailStatusPrompt, company, subject, body))
	if err != nil {
		return EmailStatus{}, err
	}

	raw, ok := match.ExtractJSON(resp)
	if !ok {
		return EmailStatus{}, fmt.Errorf("no JSON in model output: %s", logger.TruncateForLog(resp, 120))
	}
	var result EmailStatus
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return EmailStatus{}, fmt.Errorf("decode email status: %w", err)
	}
	if _, ok := result.JobStatus(); !ok && result.Status != EmailNoChange {
		result.Status = EmailUnknown
	}
	return result, nil
}

const jobRolePrompt = `
A candidate applied to several roles at the same company. Which role is this email about?

ROLES:
%s
SUBJECT:
%s

BODY:
%s

Return STRICT JSON ONLY: {"index": <number of the role from the list, or -1 if unclear>}
`

// IdentifyJobRole picks which of the titles an email refers to. It returns
// -1 when the model cannot tell or is unavailable.
func (s *LLMService) IdentifyJobRole(ctx context.Context, titles []string, subject, body string) int {
	var list strings.Builder
	for i, t := range titles {
		list.WriteString(strconv.Itoa(i))
		list.WriteString(". ")
		list.WriteString(t)
		list.WriteString("\n")
	}
	body = clip(body, maxPostingChars)

	resp, err := s.generate(ctx, fmt.Sprintf(jobRolePrompt, list.String(), subject, body))
	if err != nil {
		s.logger.Warn("job role identification failed", zap.Error(err))
		return -1
	}

	raw, ok := match.ExtractJSON(resp)
	if !ok {
		return -1
	}
	var result struct {
		Index int `json:"index"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return -1
	}
	if result.Index < 0 || result.Index >= len(titles) {
		return -1
	}
	return result.Index
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
