package helpers

import (
	"fmt"
	"strings"

	"github.com/dishpal/coupon-core/pkg/mailer"
	mailtpl "github.com/dishpal/coupon-core/pkg/mailer/templates"
)

// EnsureRecipientAndEmail backfills recipient fields used by templates from job.To.
func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// NormalizeTemplate lowercases the template name and falls back to the
// Type stored in Data when the name is missing.
func NormalizeTemplate(job *mailer.EmailJob) {
	name := strings.ToLower(strings.TrimSpace(job.Template))
	if name == "" && job.Data != nil {
		name = strings.ToLower(fmt.Sprintf("%v", job.Data["Type"]))
		if !mailtpl.Known(name) {
			name = ""
		}
	}
	job.Template = name
}

// ValidateJob checks that a job can be rendered or sent as-is.
func ValidateJob(job *mailer.EmailJob) error {
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("email job: missing recipient")
	}
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			return fmt.Errorf("email job: unknown template %q", job.Template)
		}
		return nil
	}
	if job.Subject == "" || (job.Text == "" && job.HTML == "") {
		return fmt.Errorf("email job: either template or subject with text/html is required")
	}
	return nil
}
