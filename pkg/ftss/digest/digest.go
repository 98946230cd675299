package digest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/email"
	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// Service assembles and sends signal digest emails to the curation team
type Service struct {
	db     *gorm.DB
	sender email.Sender
}

// NewService creates a digest service
func NewService(db *gorm.DB, sender email.Sender) *Service {
	return &Service{db: db, sender: sender}
}

// RecentSignals returns signals in the given statuses created within the
// last days, newest first
func (s *Service) RecentSignals(statuses []models.Status, days, limit int) ([]models.Signal, error) {
	since := time.Now().AddDate(0, 0, -days)
	var signals []models.Signal
	err := s.db.
		Where("status IN ?", statuses).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}

// Recipients returns the email addresses of all curators and admins
func (s *Service) Recipients() ([]string, error) {
	var emails []string
	err := s.db.Model(&models.User{}).
		Where("role IN ?", []models.Role{models.RoleAdmin, models.RoleCurator}).
		Order("email").
		Pluck("email", &emails).Error
	return emails, err
}

// BuildDigest renders a digest email for a batch of signals
func BuildDigest(title string, signals []models.Signal) (subject, body string) {
	subject = fmt.Sprintf("%s: %d signals", title, len(signals))

	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2>\n<ul>\n")
	for _, s := range signals {
		b.WriteString("<li><strong>")
		b.WriteString(html.EscapeString(s.Headline))
		b.WriteString("</strong>")
		if s.CreatedBy != "" {
			b.WriteString(" &mdash; submitted by ")
			b.WriteString(html.EscapeString(s.CreatedBy))
		}
		if s.Description != "" {
			b.WriteString("<br/>")
			b.WriteString(html.EscapeString(s.Description))
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
	return subject, b.String()
}

// SendDraftDigest mails the curation team the drafts and new submissions of
// the last week
func (s *Service) SendDraftDigest(ctx context.Context) error {
	signals, err := s.RecentSignals([]models.Status{models.StatusDraft, models.StatusNew}, 7, 100)
	if err != nil {
		return err
	}
	return s.send(ctx, "Signals awaiting review", signals)
}

// SendWeeklyDigest mails the curation team the signals approved in the last week
func (s *Service) SendWeeklyDigest(ctx context.Context) error {
	signals, err := s.RecentSignals([]models.Status{models.StatusApproved}, 7, 100)
	if err != nil {
		return err
	}
	return s.send(ctx, "Signals approved this week", signals)
}

func (s *Service) send(ctx context.Context, title string, signals []models.Signal) error {
	recipients, err := s.Recipients()
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no digest recipients configured")
	}
	subject, body := BuildDigest(title, signals)
	return s.sender.Send(ctx, recipients, subject, body, "text/html")
}
