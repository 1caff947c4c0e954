// Package smtp delivers notifications as HTML email.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/couchcryptid/incident-aoi-notifier/internal/config"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// mapImageName is the embedded attachment name; go-mail derives the Content-ID from it.
const mapImageName = "map.png"

// ImageFetcher downloads a rendered map image for inlining.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Dialer sends fully built messages. *mail.Client satisfies it.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Sender is the email notification sink.
type Sender struct {
	dialer Dialer
	from   string
	to     []string
	images ImageFetcher // nil unless SMTP_EMBED_MAP is set
	logger *slog.Logger
}

// NewSender creates an SMTP sender from the SMTP_* settings. images may be nil,
// in which case the map is referenced by its remote URL.
func NewSender(cfg *config.Config, images ImageFetcher, logger *slog.Logger) (*Sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
		mail.WithTimeout(cfg.SMTPTimeout),
	}
	switch cfg.SMTPTLS {
	case config.TLSImplicit:
		opts = append(opts, mail.WithSSL())
	case config.TLSStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case config.TLSNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	if !cfg.SMTPEmbedMap {
		images = nil
	}
	return newSender(client, cfg.SMTPFrom, cfg.SMTPTo, images, logger), nil
}

func newSender(d Dialer, from string, to []string, images ImageFetcher, logger *slog.Logger) *Sender {
	return &Sender{dialer: d, from: from, to: to, images: images, logger: logger}
}

// Name identifies the sink in logs and errors.
func (s *Sender) Name() string { return config.SinkSMTP }

// Send delivers n in a single SMTP session.
func (s *Sender) Send(ctx context.Context, n domain.Notification) error {
	msg, err := s.buildMessage(ctx, n)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *Sender) buildMessage(ctx context.Context, n domain.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(s.to...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetDate()

	body := n
	if n.ImageURL != "" && s.images != nil {
		img, err := s.images.FetchImage(ctx, n.ImageURL)
		if err != nil {
			// The remote URL still renders in most clients.
			s.logger.Warn("map image fetch failed, linking remote image", "aoi", n.AOI, "error", err)
		} else {
			if err := msg.EmbedReader(mapImageName, bytes.NewReader(img), mail.WithFileContentType("image/png")); err != nil {
				return nil, fmt.Errorf("embed map image: %w", err)
			}
			body.ImageURL = "cid:" + mapImageName
		}
	}
	msg.SetBodyString(mail.TypeTextHTML, body.HTML())
	return msg, nil
}
