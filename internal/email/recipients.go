// Package email resolves report recipients and delivers the finished
// report artifacts over SMTP.
package email

import (
	"fmt"

	"gracc-reporting/internal/config"
)

// Info is the resolved addressing for one report run.
type Info struct {
	ToEmails []string
	ToNames  []string
	From     config.Contact
	SMTPHost string
}

// ResolveRecipients derives the final recipient list for a report.
//
// The tester list always comes first. A test run stops there. A
// production run appends the first recipient list found at
// <report>.<vo>.to_emails, then <report>.to_emails, then
// project.<report>.to_emails; absence of all three is fatal.
func ResolveRecipients(cfg *config.Config, report, vo string, isTest bool) (Info, error) {
	info := Info{
		ToEmails: append([]string(nil), cfg.Email.Test.Emails...),
		ToNames:  append([]string(nil), cfg.Email.Test.Names...),
		From:     cfg.Email.From,
		SMTPHost: cfg.Email.SMTPHost,
	}
	if isTest {
		return info, nil
	}

	if vo != "" {
		if emails, ok := cfg.Strings(report, vo, "to_emails"); ok {
			info.ToEmails = append(info.ToEmails, emails...)
			return info, nil
		}
	}
	if emails, ok := cfg.Strings(report, "to_emails"); ok {
		info.ToEmails = append(info.ToEmails, emails...)
		if names, ok := cfg.Strings(report, "to_names"); ok {
			info.ToNames = append(info.ToNames, names...)
		}
		return info, nil
	}
	if emails, ok := cfg.Strings("project", report, "to_emails"); ok {
		info.ToEmails = append(info.ToEmails, emails...)
		if names, ok := cfg.Strings("project", report, "to_names"); ok {
			info.ToNames = append(info.ToNames, names...)
		}
		return info, nil
	}

	return Info{}, fmt.Errorf("%w: no recipients configured for report %q (vo %q)",
		config.ErrConfigMissing, report, vo)
}
