package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/mailer"
	tpl "github.com/dishpal/coupon-core/pkg/mailer/templates"
)

// Publisher puts JSON jobs on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Notifier turns domain events into email jobs. A nil Publisher or disabled
// mail sending turns every call into a logged no-op.
type Notifier struct {
	Pub    Publisher
	Cfg    *config.Config
	Geo    geo.Resolver
	Logger *logrus.Logger
}

func NewNotifier(pub Publisher, cfg *config.Config, resolver geo.Resolver, logger *logrus.Logger) *Notifier {
	return &Notifier{Pub: pub, Cfg: cfg, Geo: resolver, Logger: logger}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.Pub != nil && n.Cfg != nil && n.Cfg.MailSendEnabled
}

func (n *Notifier) skip(to, template string) error {
	if n != nil && n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{"to": to, "template": template}).Debug("mail sending disabled, job dropped")
	}
	return nil
}

func (n *Notifier) publish(ctx context.Context, job mailer.EmailJob) error {
	if err := n.Pub.PublishJSON(ctx, job); err != nil {
		if n.Logger != nil {
			n.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Error("publish email job failed")
		}
		return err
	}
	return nil
}

// VerifyEmail enqueues the activation link for u.
func (n *Notifier) VerifyEmail(ctx context.Context, u *entity.User, v *entity.ProfileVerification, ip, ua string) error {
	if !n.enabled() {
		return n.skip(u.Email, tpl.VerifyEmail)
	}
	data := tpl.NewVerifyEmailData(n.Cfg, u.FullName(), u.Email, n.Cfg.ActivationURL(v.Token, u.Email),
		tpl.WithTime(time.Now()),
		tpl.WithExpiresAt(v.ExpiresAt),
		tpl.WithIP(ip),
		tpl.WithUserAgent(ua),
		tpl.WithGeoFromIP(ctx, n.Geo, ip),
	)
	return n.publish(ctx, mailer.EmailJob{To: u.Email, Template: tpl.VerifyEmail, Data: data})
}

// PasswordReset enqueues the reset link for u.
func (n *Notifier) PasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time, ip, ua string) error {
	if !n.enabled() {
		return n.skip(u.Email, tpl.ForgotPassword)
	}
	data := tpl.NewForgotPasswordData(n.Cfg, u.FullName(), u.Email,
		tpl.WithResetURL(resetURL),
		tpl.WithTime(time.Now()),
		tpl.WithExpiresAt(expiresAt),
		tpl.WithIP(ip),
		tpl.WithUserAgent(ua),
		tpl.WithGeoFromIP(ctx, n.Geo, ip),
	)
	return n.publish(ctx, mailer.EmailJob{To: u.Email, Template: tpl.ForgotPassword, Data: data})
}

func discountInfo(d *entity.Discount, retailerName string) tpl.DiscountInfo {
	return tpl.DiscountInfo{
		Description:  d.Description,
		Code:         d.DiscountCode,
		Value:        d.DiscountValue,
		RetailerName: retailerName,
		ExpiresOn:    d.ExpirationDate.UTC().Format("2006-01-02"),
	}
}

// DiscountNearby tells a user about a new discount close to their profile location.
func (n *Notifier) DiscountNearby(ctx context.Context, to entity.NearbyUser, d *entity.Discount, retailerName string) error {
	if !n.enabled() {
		return n.skip(to.Email, tpl.DiscountNearby)
	}
	name := to.FirstName
	if name == "" {
		name = to.Username
	}
	data := tpl.NewDiscountNearbyData(n.Cfg, name, to.Email, discountInfo(d, retailerName))
	return n.publish(ctx, mailer.EmailJob{To: to.Email, Template: tpl.DiscountNearby, Data: data})
}

// DiscountExpiring warns the retailer contact that d is about to expire.
func (n *Notifier) DiscountExpiring(ctx context.Context, email string, r *entity.Retailer, d *entity.Discount) error {
	if !n.enabled() {
		return n.skip(email, tpl.DiscountExpiring)
	}
	data := tpl.NewDiscountExpiringData(n.Cfg, r.Name, email, discountInfo(d, r.Name))
	return n.publish(ctx, mailer.EmailJob{To: email, Template: tpl.DiscountExpiring, Data: data})
}
