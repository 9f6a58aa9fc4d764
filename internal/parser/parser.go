package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/mailrisk/threat-engine/internal/core"
)

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
	tagPattern  = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Parser turns a raw RFC822 message into the ParsedMessage record the
// scoring engine consumes. URLs are extracted for analysis only and never
// fetched.
type Parser struct {
	logger      *zap.Logger
	wordDecoder *mime.WordDecoder
}

// NewParser creates a message parser
func NewParser(logger *zap.Logger) *Parser {
	dec := &mime.WordDecoder{
		CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
			switch strings.ToLower(charset) {
			case "iso-8859-1", "latin1":
				return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
			case "windows-1252":
				return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
			default:
				return nil, fmt.Errorf("unhandled charset %q", charset)
			}
		},
	}
	return &Parser{logger: logger, wordDecoder: dec}
}

// Parse reads a complete raw message and produces a ParsedMessage
func (p *Parser) Parse(raw io.Reader) (*core.ParsedMessage, error) {
	msg, err := mail.ReadMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	headers := make(map[string]string, len(msg.Header))
	for name, values := range msg.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	bodyText, bodyHTML, hasAttachments := p.extractBodies(msg)
	if bodyText == "" && bodyHTML != "" {
		bodyText = htmlToText(bodyHTML)
	}

	parsed := &core.ParsedMessage{
		ID:             headers["Message-Id"],
		Sender:         p.parseSender(headers["From"]),
		Subject:        p.decodeHeader(headers["Subject"]),
		BodyText:       bodyText,
		BodyHTML:       bodyHTML,
		URLs:           extractURLs(bodyText, bodyHTML),
		HasAttachments: hasAttachments,
		Headers:        headers,
		ReceivedAt:     parseDate(headers["Date"]),
	}
	return parsed, nil
}

// parseSender splits a From header into display name, address and domain
func (p *Parser) parseSender(from string) core.Sender {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		// Fall back to treating the whole header as the address.
		addr = &mail.Address{Address: strings.TrimSpace(from)}
	}
	sender := core.Sender{
		Name:    p.decodeHeader(addr.Name),
		Address: strings.ToLower(addr.Address),
	}
	if at := strings.LastIndex(sender.Address, "@"); at >= 0 {
		sender.Domain = sender.Address[at+1:]
	}
	return sender
}

func (p *Parser) decodeHeader(value string) string {
	decoded, err := p.wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractBodies walks the MIME structure collecting text/plain and
// text/html parts and noting attachments
func (p *Parser) extractBodies(msg *mail.Message) (text, html string, attachments bool) {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			p.logger.Error("Failed to read message body", zap.Error(readErr))
			return "", "", false
		}
		if strings.HasPrefix(mediaType, "text/html") {
			return "", string(body), false
		}
		return string(body), "", false
	}

	boundary, ok := params["boundary"]
	if !ok {
		body, _ := io.ReadAll(msg.Body)
		return string(body), "", false
	}

	var textBuf, htmlBuf bytes.Buffer
	attachments = p.walkParts(msg.Body, boundary, &textBuf, &htmlBuf, 0)
	return textBuf.String(), htmlBuf.String(), attachments
}

// walkParts descends into nested multipart bodies up to a small depth
func (p *Parser) walkParts(r io.Reader, boundary string, textBuf, htmlBuf *bytes.Buffer, depth int) bool {
	if depth > 5 {
		return false
	}
	attachments := false
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Debug("Stopping MIME walk on malformed part", zap.Error(err))
			break
		}

		if disp := part.Header.Get("Content-Disposition"); strings.HasPrefix(strings.ToLower(disp), "attachment") {
			attachments = true
			continue
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(partType, "multipart/"):
			if nested, ok := partParams["boundary"]; ok {
				if p.walkParts(part, nested, textBuf, htmlBuf, depth+1) {
					attachments = true
				}
			}
		case partType == "text/plain":
			if data, err := io.ReadAll(part); err == nil {
				textBuf.Write(data)
				textBuf.WriteString("\n")
			}
		case partType == "text/html":
			if data, err := io.ReadAll(part); err == nil {
				htmlBuf.Write(data)
			}
		default:
			if part.FileName() != "" {
				attachments = true
			}
		}
	}
	return attachments
}

// extractURLs collects unique URLs from the plain text and from href
// attributes in the HTML body, preserving first-seen order
func extractURLs(text, html string) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		u = strings.TrimRight(u, ".,;")
		if _, dup := seen[u]; dup || u == "" {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, u := range urlPattern.FindAllString(text, -1) {
		add(u)
	}
	for _, m := range hrefPattern.FindAllStringSubmatch(html, -1) {
		if strings.HasPrefix(strings.ToLower(m[1]), "http") {
			add(m[1])
		}
	}
	return urls
}

// htmlToText strips tags for a rough plain-text rendering
func htmlToText(html string) string {
	stripped := tagPattern.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t
	}
	return time.Time{}
}
