// Package jobs holds the background jobs run by pkg/queue.
package jobs

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/queue"
)

// SendMailType is the registry name of SendMailJob.
const SendMailType = "send_mail"

// SendMailJob delivers one already rendered email.
type SendMailJob struct {
	Message mail.Message `json:"message"`

	mailer mail.Mailer
}

// NewSendMail builds a job ready to dispatch.
func NewSendMail(to, subject, html string) *SendMailJob {
	return &SendMailJob{Message: mail.Message{To: []string{to}, Subject: subject, HTML: html}}
}

func (j *SendMailJob) Type() string { return SendMailType }

func (j *SendMailJob) Handle(ctx context.Context) error {
	if j.mailer == nil {
		return errors.New("jobs: send_mail: no mailer")
	}
	return j.mailer.Send(ctx, j.Message)
}

// Register makes every job type known to q.
func Register(q *queue.Manager, m mail.Mailer) {
	q.Register(SendMailType, func() queue.Job { return &SendMailJob{mailer: m} })
}
