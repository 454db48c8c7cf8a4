package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/justsurfingit/job-tracker/internal/metrics"
	"github.com/justsurfingit/job-tracker/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

const (
	gmailUser       = "me"
	syncTimeout     = 2 * time.Minute
	maxFullSyncMsgs = 50
	eventEmail      = "EMAIL_UPDATE"
)

// Outcomes recorded per processed email.
const (
	resultUnmatched = "unmatched"
	resultNoJob     = "no_active_job"
	resultAmbiguous = "ambiguous"
	resultFailed    = "failed"
	resultNoChange  = "no_change"
	resultUnchanged = "unchanged"
	resultUpdated   = "updated"
)

type EmailClassifier interface {
	AnalyzeEmailStatus(ctx context.Context, company, subject, body string) (EmailStatus, error)
	IdentifyJobRole(ctx context.Context, titles []string, subject, body string) int
}

type CompanyFinder interface {
	FindCompanyFromEmail(ctx context.Context, subject, rawSender string) (string, error)
}

type JobStatusStore interface {
	ActiveJobsForCompany(ctx context.Context, company string) ([]models.Job, error)
	SetStatus(ctx context.Context, job *models.Job, status models.JobStatus, eventType, details string) error
}

type EmailService struct {
	DB          *gorm.DB
	Jobs        JobStatusStore
	Classifier  EmailClassifier
	Matcher     CompanyFinder
	GmailClient *gmail.Service
	cfg         config.GmailConfig
	logger      *zap.Logger
}

func NewEmailService(db *gorm.DB, jobs JobStatusStore, classifier EmailClassifier, matcher CompanyFinder,
	client *gmail.Service, cfg config.GmailConfig, log *zap.Logger) *EmailService {
	return &EmailService{
		DB:          db,
		Jobs:        jobs,
		Classifier:  classifier,
		Matcher:     matcher,
		GmailClient: client,
		cfg:         cfg,
		logger:      logger.OrNop(log).Named("inbox"),
	}
}

// StartWatcher syncs once immediately and then on every poll interval
// until ctx is cancelled. It blocks.
func (s *EmailService) StartWatcher(ctx context.Context) {
	if s.GmailClient == nil {
		s.logger.Warn("gmail watcher disabled, no client")
		return
	}

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("gmail watcher started", zap.Duration("interval", interval))
	s.SyncEmails(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("gmail watcher stopped")
			return
		case <-ticker.C:
			s.SyncEmails(ctx)
		}
	}
}

// syncBatch is what one listing pass produced. Fetch failures are counted so
// the caller can hold the bookmark back.
type syncBatch struct {
	messages      []*gmail.Message
	historyID     uint64
	fetchFailures int
}

// SyncEmails runs one sync cycle: fetch new messages, process each one
// not seen before, then advance the history bookmark. The bookmark only
// moves when every message of the cycle was handled, so failed emails come
// back on the next cycle; processed ones are skipped by the dedup table.
func (s *EmailService) SyncEmails(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, syncTimeout)
	defer cancel()

	s.logger.Debug("sync cycle starting")

	state, err := s.mailboxState(ctx)
	if err != nil {
		s.logger.Error("load mailbox state", zap.Error(err))
		return
	}

	var batch syncBatch
	if state.LastHistoryID == 0 {
		s.logger.Info("first run, performing full sync")
		batch, err = s.performFullSync(ctx)
	} else {
		batch, err = s.performIncrementalSync(ctx, state.LastHistoryID)
		if err != nil && isHistoryExpiredError(err) {
			s.logger.Warn("history id expired, falling back to full sync", zap.Uint64("history_id", state.LastHistoryID))
			batch, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		return
	}

	if len(batch.messages) > 0 {
		s.logger.Info("processing candidate emails", zap.Int("count", len(batch.messages)))
	}

	pending := batch.fetchFailures
	for _, msg := range batch.messages {
		if !s.handleMessage(ctx, msg) {
			pending++
		}
	}

	if pending > 0 {
		s.logger.Warn("history bookmark kept, unfinished emails are retried next cycle",
			zap.Int("pending", pending),
			zap.Uint64("history_id", state.LastHistoryID),
		)
		return
	}

	if batch.historyID > state.LastHistoryID {
		err := s.DB.WithContext(ctx).Model(&models.MailboxState{}).
			Where("id = ?", state.ID).
			Update("last_history_id", batch.historyID).Error
		if err != nil {
			s.logger.Error("save history id", zap.Error(err))
			return
		}
		s.logger.Debug("history bookmark advanced", zap.Uint64("history_id", batch.historyID))
	}
}

// handleMessage processes msg unless it was seen before. It reports false
// when the message must be retried.
func (s *EmailService) handleMessage(ctx context.Context, msg *gmail.Message) bool {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.ProcessedEmail{}).Where("id = ?", msg.Id).Count(&count).Error; err != nil {
		s.logger.Error("dedup lookup failed", zap.String("message_id", msg.Id), zap.Error(err))
		return false
	}
	if count > 0 {
		return true
	}

	result := s.processSingleEmail(ctx, msg)
	metrics.InboxEmailsProcessed.WithLabelValues(result).Inc()
	if result == resultFailed {
		return false
	}

	if err := s.DB.WithContext(ctx).Create(&models.ProcessedEmail{ID: msg.Id}).Error; err != nil {
		s.logger.Error("mark email processed", zap.String("message_id", msg.Id), zap.Error(err))
		return false
	}
	return true
}

func (s *EmailService) mailboxState(ctx context.Context) (*models.MailboxState, error) {
	var state models.MailboxState
	err := s.DB.WithContext(ctx).
		Where(models.MailboxState{Email: gmailUser}).
		FirstOrCreate(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// performFullSync lists recent matching messages and anchors the bookmark
// at the mailbox's current history id.
func (s *EmailService) performFullSync(ctx context.Context) (syncBatch, error) {
	var resp *gmail.ListMessagesResponse
	err := retry(ctx, s.logger, 3, time.Second, func() error {
		var e error
		resp, e = s.GmailClient.Users.Messages.List(gmailUser).
			Q(s.cfg.Query).
			MaxResults(maxFullSyncMsgs).
			Context(ctx).
			Do()
		return e
	})
	if err != nil {
		return syncBatch{}, fmt.Errorf("list messages: %w", err)
	}

	profile, err := s.GmailClient.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return syncBatch{}, fmt.Errorf("get profile: %w", err)
	}

	batch := s.expandMessages(ctx, resp.Messages)
	batch.historyID = profile.HistoryId
	return batch, nil
}

// performIncrementalSync fetches only messages added since startID, reading
// every page of the history listing.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) (syncBatch, error) {
	var (
		added     []*gmail.Message
		seen      = make(map[string]bool)
		historyID uint64
		pageToken string
	)
	for {
		var resp *gmail.ListHistoryResponse
		err := retry(ctx, s.logger, 3, time.Second, func() error {
			call := s.GmailClient.Users.History.List(gmailUser).
				StartHistoryId(startID).
				HistoryTypes("messageAdded").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var e error
			resp, e = call.Do()
			return e
		})
		if err != nil {
			return syncBatch{}, err
		}

		for _, h := range resp.History {
			for _, m := range h.MessagesAdded {
				if m.Message != nil && !seen[m.Message.Id] {
					seen[m.Message.Id] = true
					added = append(added, m.Message)
				}
			}
		}
		if resp.HistoryId > historyID {
			historyID = resp.HistoryId
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	batch := s.expandMessages(ctx, added)
	batch.historyID = historyID
	return batch, nil
}

func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) syncBatch {
	batch := syncBatch{messages: make([]*gmail.Message, 0, len(headers))}
	for _, h := range headers {
		var msg *gmail.Message
		err := retry(ctx, s.logger, 2, 500*time.Millisecond, func() error {
			var e error
			msg, e = s.GmailClient.Users.Messages.Get(gmailUser, h.Id).Context(ctx).Do()
			return e
		})
		if isNotFoundError(err) {
			s.logger.Debug("message no longer exists", zap.String("message_id", h.Id))
			continue
		}
		if err != nil {
			s.logger.Warn("fetch message failed", zap.String("message_id", h.Id), zap.Error(err))
			batch.fetchFailures++
			continue
		}
		batch.messages = append(batch.messages, msg)
	}
	return batch
}

// processSingleEmail matches the email to a job and applies the status the
// classifier reads from it. Jobs in a terminal status are never touched.
func (s *EmailService) processSingleEmail(ctx context.Context, msg *gmail.Message) string {
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]
	log := s.logger.With(
		zap.String("message_id", msg.Id),
		zap.String("subject", logger.TruncateForLog(subject, 40)),
	)

	body := getEmailBody(msg)

	company, err := s.Matcher.FindCompanyFromEmail(ctx, subject, sender)
	if err != nil {
		log.Error("company lookup failed", zap.Error(err))
		return resultFailed
	}
	if company == "" {
		log.Debug("skipped, sender and subject match no tracked company", zap.String("from", sender))
		return resultUnmatched
	}
	log = log.With(zap.String("company", company))

	jobs, err := s.Jobs.ActiveJobsForCompany(ctx, company)
	if err != nil {
		log.Error("active job lookup failed", zap.Error(err))
		return resultFailed
	}
	if len(jobs) == 0 {
		log.Info("skipped, no active job for company")
		return resultNoJob
	}

	target := &jobs[0]
	if len(jobs) > 1 {
		titles := make([]string, len(jobs))
		for i, j := range jobs {
			titles[i] = j.Title
		}
		idx := s.Classifier.IdentifyJobRole(ctx, titles, subject, body)
		if idx < 0 || idx >= len(jobs) {
			log.Info("skipped, could not tell which job the email is about", zap.Strings("titles", titles))
			return resultAmbiguous
		}
		target = &jobs[idx]
	}
	log = log.With(zap.String("job_id", target.ID.String()), zap.String("title", target.Title))

	analysis, err := s.Classifier.AnalyzeEmailStatus(ctx, company, subject, body)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			log.Warn("skipped, no language model to classify email")
		} else {
			log.Error("email classification failed", zap.Error(err))
		}
		return resultFailed
	}

	status, ok := analysis.JobStatus()
	if !ok {
		log.Debug("no status change", zap.String("decision", analysis.Status))
		return resultNoChange
	}
	if status == target.Status || target.Status.Terminal() {
		return resultUnchanged
	}

	details := fmt.Sprintf("Status changed to %s. Summary: %s", status, analysis.Summary)
	if err := s.Jobs.SetStatus(ctx, target, status, eventEmail, details); err != nil {
		log.Error("status update failed", zap.Error(err))
		return resultFailed
	}
	log.Info("job status updated from email", zap.String("from", string(target.Status)), zap.String("to", string(status)))
	target.Status = status
	return resultUpdated
}

// retry runs f with exponential backoff. A 404 returns at once so the
// caller can switch to a full sync or skip a deleted message.
func retry(ctx context.Context, log *zap.Logger, attempts int, sleep time.Duration, f func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if isNotFoundError(err) || i == attempts-1 {
			break
		}

		log.Warn("gmail api error, retrying", zap.Error(err), zap.Duration("backoff", sleep))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		sleep *= 2
	}
	if isNotFoundError(err) {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

// isHistoryExpiredError reports a 404 from the history listing, which Gmail
// returns once the start id is too old.
func isHistoryExpiredError(err error) bool {
	return isNotFoundError(err)
}

func isNotFoundError(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound
	}
	return false
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg == nil || msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

// getEmailBody prefers the top-level body, then a text/plain part, then
// text/html.
func getEmailBody(msg *gmail.Message) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		for _, part := range msg.Payload.Parts {
			if part.MimeType == mime && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		}
	}
	return ""
}

func decodeBody(data string) string {
	if d, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(d)
	}
	if d, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "=")); err == nil {
		return string(d)
	}
	return ""
}
