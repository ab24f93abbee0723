package email

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"gracc-reporting/internal/config"
)

// NotifyAdmins emails the tester list about a fatal report error. The
// send itself is guarded: a failure here is logged and the original
// error is what the caller propagates.
func (m *Mailer) NotifyAdmins(cfg *config.Config, report string, runErr error, logfile string) {
	info := Info{
		ToEmails: cfg.Email.Test.Emails,
		ToNames:  cfg.Email.Test.Names,
		From:     cfg.Email.From,
		SMTPHost: cfg.Email.SMTPHost,
	}
	msg := &Message{
		Subject: fmt.Sprintf("ERROR PRODUCING REPORT: Date Generated %s", time.Now().Format(time.RFC1123)),
		TextBody: fmt.Sprintf("The %s report failed to run.\n\nError: %v\n\nSee the logfile at %s for details.\n",
			report, runErr, logfile),
	}
	if err := m.Send(info, msg); err != nil {
		m.logger.Error("Failed to send admin error notification",
			zap.Error(err),
			zap.String("report", report))
	}
}
