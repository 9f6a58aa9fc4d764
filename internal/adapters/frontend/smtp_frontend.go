package frontend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/config"
	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/parser"
)

// SMTPFrontend runs an SMTP proxy that scores every incoming message,
// stamps the verdict into X-Threat-* headers and, when relaying is enabled,
// forwards the annotated message upstream. With block_spam set, SPAM-tier
// messages are rejected at DATA time instead.
type SMTPFrontend struct {
	service *core.ScoringService
	parser  *parser.Parser
	logger  *zap.Logger
	cfg     config.ServerConfig
	server  *smtp.Server
}

// NewSMTPFrontend creates a new SMTP proxy frontend
func NewSMTPFrontend(
	service *core.ScoringService,
	msgParser *parser.Parser,
	logger *zap.Logger,
	cfg config.ServerConfig,
) *SMTPFrontend {
	return &SMTPFrontend{
		service: service,
		parser:  msgParser,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start starts the SMTP server
func (f *SMTPFrontend) Start() error {
	f.server = smtp.NewServer(&smtpBackend{frontend: f})
	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP frontend starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP server
func (f *SMTPFrontend) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessMessage scores a message directly, bypassing the SMTP path
func (f *SMTPFrontend) ProcessMessage(ctx context.Context, msg *core.ParsedMessage) (*core.Classification, error) {
	return f.service.ScoreMessage(ctx, msg)
}

// annotate prepends the verdict headers to the raw message data
func (f *SMTPFrontend) annotate(raw []byte, result *core.Classification) []byte {
	var headers bytes.Buffer
	fmt.Fprintf(&headers, "%s: %s\r\n", f.cfg.TierHeader, result.Tier)
	fmt.Fprintf(&headers, "%s: %.1f\r\n", f.cfg.ScoreHeader, result.Score)
	if len(result.Indicators) > 0 {
		preview := result.Indicators
		if len(preview) > 3 {
			preview = preview[:3]
		}
		fmt.Fprintf(&headers, "%s: %s\r\n", f.cfg.IndicatorsHeader, strings.Join(preview, "; "))
	}
	return append(headers.Bytes(), raw...)
}

// relay forwards the annotated message to the upstream listener
func (f *SMTPFrontend) relay(sender string, recipients []string, data []byte) error {
	addr := fmt.Sprintf("%s:%d", f.cfg.RelayAddress, f.cfg.RelayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set relay deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed", zap.String("recipient", rcpt), zap.Error(err))
			continue
		}
		accepted = true
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT failed after relay", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	frontend *SMTPFrontend
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		frontend:   b.frontend,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	frontend   *SMTPFrontend
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = s.recipients[:0]
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// AuthPlain rejects authentication; the proxy is an open internal hop
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the envelope sender
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds an envelope recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message body and annotates or rejects it
func (s *smtpSession) Data(r io.Reader) error {
	f := s.frontend

	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := f.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		f.logger.Error("Failed to parse message", zap.Error(err))
		return err
	}
	if msg.Sender.Address == "" {
		msg.Sender.Address = strings.ToLower(s.sender)
		if at := strings.LastIndex(msg.Sender.Address, "@"); at >= 0 {
			msg.Sender.Domain = msg.Sender.Address[at+1:]
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := f.service.ScoreMessage(ctx, msg)
	if err != nil {
		f.logger.Error("Failed to score message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 7, 0},
			Message:      "Temporary scoring failure",
		}
	}

	if f.cfg.BlockSpam && result.Tier == core.TierSpam {
		f.logger.Info("Rejecting spam message",
			zap.String("sender", s.sender),
			zap.Float64("score", result.Score))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Message rejected as spam",
		}
	}

	if f.cfg.RelayEnabled {
		annotated := f.annotate(raw, result)
		if err := f.relay(s.sender, s.recipients, annotated); err != nil {
			f.logger.Error("Failed to relay message", zap.Error(err))
			return err
		}
	}
	return nil
}
