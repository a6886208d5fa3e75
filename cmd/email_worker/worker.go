package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/mailer"
	mailtpl "github.com/dishpal/coupon-core/pkg/mailer/templates"
)

// outcome tells the consumer loop how to settle a delivery.
type outcome int

const (
	ack outcome = iota
	drop
	requeue
)

var errMalformed = errors.New("malformed job")

type worker struct {
	sender      mailer.Sender
	resolver    geo.Resolver
	logger      *logrus.Logger
	sendTimeout time.Duration
}

// render turns a job into subject, text and html. Jobs without a template are sent as-is.
func render(job mailer.EmailJob) (subject, text, html string, err error) {
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	return mailtpl.Render(job.Template, job.Data)
}

func (w *worker) handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(fmt.Errorf("%w: %v", errMalformed, err)).Warn("dropping email job")
		return drop
	}
	helpers.NormalizeTemplate(&job)
	helpers.EnsureRecipientAndEmail(&job)
	if err := helpers.ValidateJob(&job); err != nil {
		w.logger.WithError(err).WithField("to", job.To).Warn("dropping email job")
		return drop
	}
	helpers.LocalizeTimesIfPossible(ctx, w.resolver, job.Data)

	subject, text, html, err := render(job)
	if err != nil {
		w.logger.WithError(err).WithField("template", job.Template).Error("render email failed")
		return drop
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, job.To, subject, text, html); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Warn("send email failed; requeueing")
		return requeue
	}
	w.logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return ack
}
