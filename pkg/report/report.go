// Package report builds campaign summary reports and delivers them by
// email. The body is composed as markdown, rendered to HTML, and sent over
// SMTP with STARTTLS.
package report

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

// BuildMarkdown composes the report body for a finished campaign.
func BuildMarkdown(set *models.LeadSet, cfg config.ReportConfig) string {
	var b strings.Builder
	b.WriteString("# Lead Generation Report\n\n")
	fmt.Fprintf(&b, "Campaign `%s` ran from %s to %s.\n\n",
		set.CampaignID,
		set.StartedAt.Format("2006-01-02 15:04"),
		set.FinishedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Searches executed: %d\n", set.Searches)
	fmt.Fprintf(&b, "- Result pages processed: %d\n", set.Pages)
	fmt.Fprintf(&b, "- Unique leads collected: %d\n\n", len(set.Leads))

	top := set.Leads
	if cfg.TopLeads > 0 && len(top) > cfg.TopLeads {
		top = top[:cfg.TopLeads]
	}
	if len(top) > 0 {
		fmt.Fprintf(&b, "## Top %d Leads\n\n", len(top))
		b.WriteString("| # | Name | Headline | Location | Fit Score |\n")
		b.WriteString("|---|------|----------|----------|-----------|\n")
		for i, lead := range top {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %d |\n",
				i+1, cell(lead.Name), cell(lead.Headline), cell(lead.Location), lead.FitScore)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cell makes a value safe inside a markdown table row.
func cell(v string) string {
	return strings.ReplaceAll(v, "|", "/")
}

// RenderHTML converts the markdown body to HTML with table support.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", utils.WrapErrorf(utils.ErrParsing, "rendering report HTML: %v", err)
	}
	return buf.String(), nil
}

// sendFunc matches smtp.SendMail, which performs STARTTLS when the server
// advertises it.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers rendered reports over SMTP.
type Mailer struct {
	cfg   config.ReportConfig
	creds config.Credentials
	log   *logrus.Entry
	send  sendFunc
}

// NewMailer builds a Mailer using the real SMTP client.
func NewMailer(creds config.Credentials, cfg config.ReportConfig, logger *logrus.Entry) *Mailer {
	return &Mailer{cfg: cfg, creds: creds, log: logger, send: smtp.SendMail}
}

// Send delivers an HTML report body. Recipients default to the sender
// address when none are configured.
func (m *Mailer) Send(subject, htmlBody string) error {
	if err := m.creds.RequireEmail(); err != nil {
		return err
	}

	recipients := m.cfg.Recipients
	if len(recipients) == 0 {
		recipients = []string{m.creds.EmailAddress}
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.creds.EmailAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.creds.EmailAddress, m.creds.EmailPassword, m.cfg.SMTPHost)
	if err := m.send(addr, auth, m.creds.EmailAddress, recipients, msg.Bytes()); err != nil {
		return fmt.Errorf("sending report via %s: %w", addr, err)
	}

	m.log.WithField("recipients", len(recipients)).Info("Report email sent")
	return nil
}
