package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/qepting91/postwatch/internal/domain"
	"github.com/wneessen/go-mail"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	To       string
	// Site is linked at the bottom of the mail when set.
	Site string
}

// Mailer sends digests as HTML mail through an authenticated SMTP account.
type Mailer struct {
	cfg MailConfig
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.To == "" {
		cfg.To = cfg.Username
	}
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Name() string { return "email" }

var mailTmpl = template.Must(template.New("mail").Parse(`<h2>{{.Subject}} · {{len .Entries}} posts</h2>
<ol>
{{range .Entries}}<li style="margin:8px 0;">{{if .Source}}[{{.Source}}] {{end}}<a href="{{.Link}}">{{.Title}}</a></li>
{{end}}</ol>
{{if .Site}}<p><a href="{{.Site}}">{{.Site}}</a></p>
{{end}}<p>sent by postwatch</p>
`))

// RenderMailBody formats d as the HTML mail body. site may be empty.
func RenderMailBody(d Digest, site string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Subject string
		Entries []domain.Entry
		Site    string
	}{d.Subject(), d.Entries, site}
	if err := mailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return buf.String(), nil
}

// buildMessage assembles the message without touching the network.
func (m *Mailer) buildMessage(d Digest) (*mail.Msg, error) {
	body, err := RenderMailBody(d, m.cfg.Site)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Username); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", m.cfg.Username, err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", m.cfg.To, err)
	}
	msg.Subject(d.Subject())
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (m *Mailer) Send(ctx context.Context, d Digest) error {
	msg, err := m.buildMessage(d)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
