package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
)

// Sender delivers transactional mail. Delivery failures are logged and never
// surfaced to the request that triggered them.
type Sender interface {
	SendWelcome(to, username string)
	SendResetCode(to, code string)
}

const welcomeTmpl = `<html><body>
<h2>Welcome to Inkwell, {{.Username}}!</h2>
<p>Your account is ready. Sign in and start writing.</p>
</body></html>`

const resetTmpl = `<html><body>
<h2>Password reset</h2>
<p>Your verification code is <b>{{.Code}}</b>. It expires in 15 minutes.</p>
<p>If you did not request this, you can ignore this message.</p>
</body></html>`

type Mailer struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	enabled bool
	welcome *template.Template
	reset   *template.Template
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:    cfg.SMTPHost,
		port:    cfg.SMTPPort,
		user:    cfg.SMTPUser,
		pass:    cfg.SMTPPass,
		from:    cfg.SMTPFrom,
		enabled: cfg.MailEnabled(),
		welcome: template.Must(template.New("welcome").Parse(welcomeTmpl)),
		reset:   template.Must(template.New("reset").Parse(resetTmpl)),
	}
}

func (m *Mailer) SendWelcome(to, username string) {
	m.send(to, "Welcome to Inkwell", m.welcome, map[string]string{"Username": username})
}

func (m *Mailer) SendResetCode(to, code string) {
	m.send(to, "Your password reset code", m.reset, map[string]string{"Code": code})
}

func (m *Mailer) send(to, subject string, tmpl *template.Template, data any) {
	if !m.enabled {
		middleware.Logger.Debug("mail disabled, skipping send", "to", to, "subject", subject)
		return
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		middleware.Logger.Error("render mail template", "subject", subject, "error", err)
		return
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, body.String())

	go func() {
		addr := m.host + ":" + m.port
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
			middleware.Logger.Error("send mail", "to", to, "subject", subject, "error", err)
		}
	}()
}
