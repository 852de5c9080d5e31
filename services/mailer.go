package services

import "context"

// Mailer delivers transactional HTML email.
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlContent string) error
}
