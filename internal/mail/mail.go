// Package mail renders completed conversations into transcript documents and
// hands them to an outbound SMTP transport.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strconv"

	chatd "github.com/webfolio/chatd"
	"github.com/webfolio/chatd/internal/models"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
)

// Config carries the SMTP transport settings and the transcript recipient.
type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	Recipient string
}

// ConfigFromEnv reads SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS and
// TRANSCRIPT_RECIPIENT_EMAIL, reporting false when any of them is missing
// or the port is not a number.
func ConfigFromEnv() (Config, bool) {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	recipient := os.Getenv("TRANSCRIPT_RECIPIENT_EMAIL")

	if host == "" || port == "" || user == "" || pass == "" || recipient == "" {
		return Config{}, false
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return Config{}, false
	}

	return Config{
		Host:      host,
		Port:      portNum,
		User:      user,
		Pass:      pass,
		Recipient: recipient,
	}, true
}

// Sender delivers one rendered mail message.
type Sender interface {
	Send(cfg Config, from, subject string, htmlBody []byte) error
}

// Dispatcher turns a persisted conversation into a transcript email. A
// dispatcher without SMTP configuration is valid: it logs that fact and
// reports every send as not sent, which callers must treat as a non-fatal
// outcome.
type Dispatcher struct {
	cfg        Config
	configured bool
	sender     Sender
	templates  *template.Template
	markdown   goldmark.Markdown
	logger     *slog.Logger
}

// NewDispatcher creates a Dispatcher using the given transport. Configuration
// is read from the environment; see ConfigFromEnv.
func NewDispatcher(sender Sender, logger *slog.Logger) (Dispatcher, error) {
	tmpl, err := template.ParseFS(chatd.TemplateFS, "templates/email/*.html")
	if err != nil {
		return Dispatcher{}, fmt.Errorf("failed to parse email templates: %w", err)
	}

	cfg, configured := ConfigFromEnv()
	l := logger.With(slog.String("module", "mail"))
	if !configured {
		l.Info("SMTP not configured, transcript emails disabled")
	}

	return Dispatcher{
		cfg:        cfg,
		configured: configured,
		sender:     sender,
		templates:  tmpl,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				highlighting.NewHighlighting(highlighting.WithStyle("github")),
			),
		),
		logger: l,
	}, nil
}

// Configured reports whether the SMTP transport settings are present.
func (d Dispatcher) Configured() bool {
	return d.configured
}

// SendTranscript renders the conversation and hands it to the transport,
// returning true only on a successful send. Missing configuration and
// transport failures are logged outcomes, never surfaced as errors; the
// caller flips the persisted TranscriptSent flag only on a true result.
func (d Dispatcher) SendTranscript(conversation models.Conversation) bool {
	if !d.configured {
		d.logger.Info("SMTP not configured, skipping transcript email",
			slog.String("id", conversation.ID))
		return false
	}

	body, err := d.render(conversation)
	if err != nil {
		d.logger.Error("Failed to render transcript",
			slog.String("id", conversation.ID),
			slog.String("err", err.Error()))
		return false
	}

	from := fmt.Sprintf("%q <%s>", "Portfolio Bot", d.cfg.User)
	if err := d.sender.Send(d.cfg, from, Subject(conversation), body); err != nil {
		d.logger.Error("Failed to send transcript email",
			slog.String("id", conversation.ID),
			slog.String("err", err.Error()))
		return false
	}
	return true
}

// Subject derives the email subject from the first user message, truncated
// to 60 characters with an ellipsis if longer.
func Subject(conversation models.Conversation) string {
	preview := "New conversation"
	ellipsis := ""
	if m, ok := conversation.FirstUserMessage(); ok {
		preview = m.Content
		if runes := []rune(preview); len(runes) > 60 {
			preview = string(runes[:60])
			ellipsis = "..."
		}
	}
	return fmt.Sprintf("Chat Transcript: %q", preview+ellipsis)
}

type transcriptData struct {
	StartedAt    string
	MessageCount int
	Messages     []transcriptMessage
}

type transcriptMessage struct {
	Label      string
	Time       string
	Background template.CSS
	LabelColor template.CSS
	Content    template.HTML
}

func (d Dispatcher) render(conversation models.Conversation) ([]byte, error) {
	msgs := make([]transcriptMessage, 0, len(conversation.Messages))
	for _, m := range conversation.Messages {
		tm := transcriptMessage{
			Time: m.Timestamp.Local().Format("03:04 PM"),
		}
		if m.Role == models.RoleUser {
			tm.Label = "Visitor"
			tm.Background = "#EEF2FF"
			tm.LabelColor = "#6366F1"
			// Visitor-supplied text is escaped against markup injection.
			tm.Content = template.HTML(template.HTMLEscapeString(m.Content))
		} else {
			tm.Label = "AI Assistant"
			tm.Background = "#F9FAFB"
			tm.LabelColor = "#6B7280"
			var buf bytes.Buffer
			if err := d.markdown.Convert([]byte(m.Content), &buf); err != nil {
				return nil, fmt.Errorf("failed to render markdown: %w", err)
			}
			tm.Content = template.HTML(buf.String())
		}
		msgs = append(msgs, tm)
	}

	data := transcriptData{
		StartedAt:    conversation.StartedAt.Local().Format("Jan 2, 2006, 3:04 PM"),
		MessageCount: len(conversation.Messages),
		Messages:     msgs,
	}

	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, "transcript", data); err != nil {
		return nil, fmt.Errorf("failed to execute transcript template: %w", err)
	}
	return buf.Bytes(), nil
}
