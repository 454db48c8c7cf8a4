package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

type fakeClassifier struct {
	status   EmailStatus
	err      error
	roleIdx  int
	analyzed int
}

func (f *fakeClassifier) AnalyzeEmailStatus(context.Context, string, string, string) (EmailStatus, error) {
	f.analyzed++
	return f.status, f.err
}

func (f *fakeClassifier) IdentifyJobRole(context.Context, []string, string, string) int {
	return f.roleIdx
}

type fakeFinder struct {
	company string
	err     error
}

func (f fakeFinder) FindCompanyFromEmail(context.Context, string, string) (string, error) {
	return f.company, f.err
}

type statusUpdate struct {
	jobID   uuid.UUID
	status  models.JobStatus
	details string
}

type fakeJobStore struct {
	jobs    []models.Job
	err     error
	updates []statusUpdate
}

func (f *fakeJobStore) ActiveJobsForCompany(context.Context, string) ([]models.Job, error) {
	return f.jobs, f.err
}

func (f *fakeJobStore) SetStatus(_ context.Context, job *models.Job, status models.JobStatus, _ string, details string) error {
	f.updates = append(f.updates, statusUpdate{jobID: job.ID, status: status, details: details})
	return nil
}

func testMessage(subject, from, body string) *gmail.Message {
	return &gmail.Message{
		Id: "msg-1",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "From", Value: from},
			},
			Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))},
		},
	}
}

func newTestEmailService(store *fakeJobStore, cls *fakeClassifier, finder fakeFinder) *EmailService {
	return NewEmailService(nil, store, cls, finder, nil, config.GmailConfig{}, zap.NewNop())
}

func TestProcessSingleEmail(t *testing.T) {
	applied := models.Job{ID: uuid.New(), Title: "Data Engineer", Company: "Stripe", Status: models.StatusApplied}
	msg := testMessage("Interview invitation", "Stripe <jobs@stripe.com>", "We'd like to talk")

	t.Run("updates status", func(t *testing.T) {
		store := &fakeJobStore{jobs: []models.Job{applied}}
		cls := &fakeClassifier{status: EmailStatus{Status: "interview", Summary: "invite"}}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultUpdated, s.processSingleEmail(context.Background(), msg))
		require.Len(t, store.updates, 1)
		assert.Equal(t, applied.ID, store.updates[0].jobID)
		assert.Equal(t, models.StatusInterview, store.updates[0].status)
		assert.Contains(t, store.updates[0].details, "invite")
	})

	t.Run("unmatched company", func(t *testing.T) {
		store := &fakeJobStore{}
		cls := &fakeClassifier{}
		s := newTestEmailService(store, cls, fakeFinder{})

		assert.Equal(t, resultUnmatched, s.processSingleEmail(context.Background(), msg))
		assert.Zero(t, cls.analyzed)
	})

	t.Run("no active job", func(t *testing.T) {
		s := newTestEmailService(&fakeJobStore{}, &fakeClassifier{}, fakeFinder{company: "Stripe"})
		assert.Equal(t, resultNoJob, s.processSingleEmail(context.Background(), msg))
	})

	t.Run("ambiguous role", func(t *testing.T) {
		other := applied
		other.ID = uuid.New()
		other.Title = "Analytics Engineer"
		store := &fakeJobStore{jobs: []models.Job{applied, other}}
		cls := &fakeClassifier{roleIdx: -1}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultAmbiguous, s.processSingleEmail(context.Background(), msg))
		assert.Empty(t, store.updates)
	})

	t.Run("role picked by classifier", func(t *testing.T) {
		other := applied
		other.ID = uuid.New()
		store := &fakeJobStore{jobs: []models.Job{applied, other}}
		cls := &fakeClassifier{roleIdx: 1, status: EmailStatus{Status: "rejected"}}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultUpdated, s.processSingleEmail(context.Background(), msg))
		require.Len(t, store.updates, 1)
		assert.Equal(t, other.ID, store.updates[0].jobID)
	})

	t.Run("no change", func(t *testing.T) {
		store := &fakeJobStore{jobs: []models.Job{applied}}
		cls := &fakeClassifier{status: EmailStatus{Status: EmailNoChange}}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultNoChange, s.processSingleEmail(context.Background(), msg))
		assert.Empty(t, store.updates)
	})

	t.Run("same status", func(t *testing.T) {
		store := &fakeJobStore{jobs: []models.Job{applied}}
		cls := &fakeClassifier{status: EmailStatus{Status: "Applied"}}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultUnchanged, s.processSingleEmail(context.Background(), msg))
		assert.Empty(t, store.updates)
	})

	t.Run("terminal job untouched", func(t *testing.T) {
		offer := applied
		offer.Status = models.StatusOffer
		store := &fakeJobStore{jobs: []models.Job{offer}}
		cls := &fakeClassifier{status: EmailStatus{Status: "rejected"}}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultUnchanged, s.processSingleEmail(context.Background(), msg))
		assert.Empty(t, store.updates)
	})

	t.Run("classifier unavailable", func(t *testing.T) {
		store := &fakeJobStore{jobs: []models.Job{applied}}
		cls := &fakeClassifier{err: ErrLLMUnavailable}
		s := newTestEmailService(store, cls, fakeFinder{company: "Stripe"})

		assert.Equal(t, resultFailed, s.processSingleEmail(context.Background(), msg))
	})

	t.Run("lookup error", func(t *testing.T) {
		s := newTestEmailService(&fakeJobStore{}, &fakeClassifier{}, fakeFinder{err: errors.New("db down")})
		assert.Equal(t, resultFailed, s.processSingleEmail(context.Background(), msg))
	})
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	calls := 0
	err := retry(ctx, log, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retry(ctx, log, 3, time.Millisecond, func() error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "boom")

	calls = 0
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	err = retry(ctx, log, 3, time.Millisecond, func() error {
		calls++
		return notFound
	})
	assert.Equal(t, 1, calls)
	assert.True(t, isHistoryExpiredError(err))
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, zap.NewNop(), 3, time.Hour, func() error { return errors.New("transient") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsHistoryExpiredError(t *testing.T) {
	assert.True(t, isHistoryExpiredError(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 404})))
	assert.False(t, isHistoryExpiredError(&googleapi.Error{Code: 500}))
	assert.False(t, isHistoryExpiredError(errors.New("404")))
}

func TestGetEmailBody(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	msg := &gmail.Message{Payload: &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: enc("<p>html</p>")}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: enc("plain")}},
		},
	}}
	assert.Equal(t, "plain", getEmailBody(msg))

	msg.Payload.Parts = msg.Payload.Parts[:1]
	assert.Equal(t, "<p>html</p>", getEmailBody(msg))

	raw := &gmail.Message{Payload: &gmail.MessagePart{
		Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("no padding!"))},
	}}
	assert.Equal(t, "no padding!", getEmailBody(raw))

	assert.Empty(t, getEmailBody(&gmail.Message{}))
}
