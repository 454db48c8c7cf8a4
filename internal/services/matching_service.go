package services

import (
	"context"
	"net/mail"
	"strings"
)

// Names shorter than this match almost any text.
const minCompanyNameLen = 3

type CompanyLister interface {
	Companies(ctx context.Context) ([]string, error)
}

type MatcherService struct {
	Jobs CompanyLister
}

func NewMatcherService(jobs CompanyLister) *MatcherService {
	return &MatcherService{Jobs: jobs}
}

// FindCompanyFromEmail matches an email to a tracked company name. It
// returns "" when nothing matches.
func (s *MatcherService) FindCompanyFromEmail(ctx context.Context, subject, rawSender string) (string, error) {
	companies, err := s.Jobs.Companies(ctx)
	if err != nil {
		return "", err
	}
	return MatchCompany(subject, rawSender, companies), nil
}

// MatchCompany checks, per company in order, the subject line, the sender
// display name and the sender domain.
func MatchCompany(subject, rawSender string, companies []string) string {
	// "Stripe Recruiting <jobs@stripe.com>" -> name="stripe recruiting", addr="jobs@stripe.com"
	var senderName, senderAddr string
	if parsed, err := mail.ParseAddress(rawSender); err == nil {
		senderName = strings.ToLower(parsed.Name)
		senderAddr = strings.ToLower(parsed.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}

	var domain string
	if at := strings.LastIndex(senderAddr, "@"); at != -1 {
		domain = strings.TrimSuffix(senderAddr[at+1:], ">")
	}

	subjectLower := strings.ToLower(subject)

	for _, company := range companies {
		name := strings.ToLower(strings.TrimSpace(company))
		if len(name) < minCompanyNameLen {
			continue
		}

		if strings.Contains(subjectLower, name) {
			return company
		}
		if senderName != "" && strings.Contains(senderName, name) {
			return company
		}
		// "Acme Corp" should still match acmecorp.com.
		if domain != "" && (strings.Contains(domain, name) || strings.Contains(domain, strings.ReplaceAll(name, " ", ""))) {
			return company
		}
	}
	return ""
}
