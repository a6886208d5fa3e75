package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/mailer"
	mailtpl "github.com/dishpal/coupon-core/pkg/mailer/templates"
)

type sent struct{ to, subject, text, html string }

type fakeSender struct {
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject, text, html})
	return nil
}

func newWorker(s mailer.Sender) *worker {
	return &worker{sender: s, logger: helpers.NopLogger(), sendTimeout: time.Second}
}

func encode(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestHandleTemplateJob(t *testing.T) {
	s := &fakeSender{}
	cfg := &config.Config{AppName: "DishPal", CompanyName: "DishPal Inc"}
	job := mailer.EmailJob{
		To:       "jane@example.com",
		Template: "VERIFY_EMAIL",
		Data:     mailtpl.NewVerifyEmailData(cfg, "Jane", "jane@example.com", "https://api/activate/?token=t"),
	}

	assert.Equal(t, ack, newWorker(s).handle(context.Background(), encode(t, job)))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "jane@example.com", s.sent[0].to)
	assert.Equal(t, "Verify your email address for DishPal", s.sent[0].subject)
	assert.Contains(t, s.sent[0].text, "https://api/activate/?token=t")
}

func TestHandleRawJob(t *testing.T) {
	s := &fakeSender{}
	job := mailer.EmailJob{To: "ops@example.com", Subject: "hello", Text: "plain body"}
	assert.Equal(t, ack, newWorker(s).handle(context.Background(), encode(t, job)))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "hello", s.sent[0].subject)
	assert.Equal(t, "plain body", s.sent[0].text)
}

func TestHandleDropsBadJobs(t *testing.T) {
	s := &fakeSender{}
	w := newWorker(s)
	assert.Equal(t, drop, w.handle(context.Background(), []byte("{not json")))
	assert.Equal(t, drop, w.handle(context.Background(), encode(t, mailer.EmailJob{Subject: "no recipient", Text: "x"})))
	assert.Equal(t, drop, w.handle(context.Background(), encode(t, mailer.EmailJob{To: "a@example.com", Template: "unknown"})))
	assert.Equal(t, drop, w.handle(context.Background(), encode(t, mailer.EmailJob{To: "a@example.com"})))
	assert.Empty(t, s.sent)
}

func TestHandleRequeuesOnSendFailure(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun down")}
	job := mailer.EmailJob{To: "ops@example.com", Subject: "hello", Text: "body"}
	assert.Equal(t, requeue, newWorker(s).handle(context.Background(), encode(t, job)))
}
