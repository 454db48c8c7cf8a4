package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCompanies struct {
	names []string
	err   error
}

func (s staticCompanies) Companies(context.Context) ([]string, error) {
	return s.names, s.err
}

func TestMatchCompany(t *testing.T) {
	companies := []string{"Go", "Stripe", "Acme Corp", "Globex"}

	tests := []struct {
		name    string
		subject string
		sender  string
		want    string
	}{
		{"subject", "Update on your application to Stripe", "noreply@greenhouse.io", "Stripe"},
		{"display name", "Your application", "Globex Talent <talent@mail.example.com>", "Globex"},
		{"domain", "Next steps", "jobs@stripe.com", "Stripe"},
		{"domain without spaces", "Interview invite", "Recruiting <hr@acmecorp.com>", "Acme Corp"},
		{"short names skipped", "Let's go!", "someone@example.com", ""},
		{"no match", "Weekly newsletter", "news@example.com", ""},
		{"unparseable sender", "Hello", "not an address", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchCompany(tt.subject, tt.sender, companies))
		})
	}
}

func TestMatchCompanyFirstInListWins(t *testing.T) {
	got := MatchCompany("Stripe and Globex", "x@example.com", []string{"Globex", "Stripe"})
	assert.Equal(t, "Globex", got)
}

func TestFindCompanyFromEmail(t *testing.T) {
	m := NewMatcherService(staticCompanies{names: []string{"Initech"}})
	got, err := m.FindCompanyFromEmail(context.Background(), "Initech: interview", "hr@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Initech", got)

	m = NewMatcherService(staticCompanies{err: errors.New("db down")})
	_, err = m.FindCompanyFromEmail(context.Background(), "x", "y")
	assert.Error(t, err)
}
