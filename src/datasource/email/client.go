package email

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"deliverydash/src/storage"
)

const (
	// MaxFetchMessages caps a single fetch so a backlogged inbox cannot
	// exhaust memory.
	MaxFetchMessages = 100
	FetchBufferSize  = 10
	// RecentMailDuration bounds how far back the unread search looks.
	RecentMailDuration = 24 * time.Hour
)

// MailService is the mailbox access the ingest pipeline needs.
type MailService interface {
	Connect() error
	Disconnect()
	FetchUnreadEmails() ([]*Email, error)
}

// Handler consumes one fetched email.
type Handler interface {
	Handle(email *Email) error
}

// Email is a fetched message with its attachments decoded.
type Email struct {
	UID         uint32
	Date        time.Time
	From        string
	Subject     string
	Attachments []*Attachment
}

// Attachment is one decoded email attachment.
type Attachment struct {
	Filename string
	Content  []byte
}

// EmailClient is the IMAP implementation of MailService.
type EmailClient struct {
	server    string
	username  string
	password  string
	client    *client.Client
	mu        sync.Mutex
	connected bool
}

// NewEmailClient creates a client for an IMAP server ("imap.example.com:993").
func NewEmailClient(server, username, password string) *EmailClient {
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
	}
}

// Connect dials the server over TLS and logs in. An existing live
// connection is reused.
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.server, err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("login as %s: %w", s.username, err)
	}

	s.client = c
	s.connected = true
	return nil
}

// Disconnect logs out and drops the connection.
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnreadEmails returns the recent unread messages in INBOX.
func (s *EmailClient) FetchUnreadEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("not connected to mail server")
	}

	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}

	return s.fetchMessages(ids)
}

func (s *EmailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		email, err := s.parseEmail(msg, section)
		if err != nil {
			continue // one undecodable message must not stop the batch
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	return emails, nil
}

func (s *EmailClient) parseEmail(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("message %d has no body", msg.Uid)
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}

	header := mr.Header
	date, _ := header.Date() // a bad date header is not fatal

	email := &Email{
		UID:     msg.Uid,
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	if err := s.parseEmailParts(mr, email); err != nil {
		return nil, err
	}

	return email, nil
}

func (s *EmailClient) parseEmailParts(mr *mail.Reader, email *Email) error {
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		if h, ok := p.Header.(*mail.AttachmentHeader); ok {
			s.parseAttachment(h, p.Body, email)
		}
	}
	return nil
}

func (s *EmailClient) parseAttachment(h *mail.AttachmentHeader, body io.Reader, email *Email) {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return
	}

	email.Attachments = append(email.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
}

// decodeHeader decodes RFC 2047 encoded words (=?charset?enc?text?=).
// Undecodable headers come back verbatim.
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}

	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader converts any charset the html index knows to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// CheckAndProcessEmails runs one ingest cycle: connect, fetch recent unread
// mail, and hand every subject-matching message to the handler, newest
// first. Returns how many messages the handler accepted.
func CheckAndProcessEmails(mailService MailService, handler Handler, keyword string, logger *storage.Logger) (int, error) {
	startTime := time.Now()
	logger.Info("checking mailbox for dataset mail")

	if err := mailService.Connect(); err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchUnreadEmails()
	if err != nil {
		return 0, fmt.Errorf("fetch unread: %w", err)
	}
	if len(emails) == 0 {
		logger.Info("no new mail")
		return 0, nil
	}

	targets := filterTargetEmails(emails, keyword)
	if len(targets) == 0 {
		logger.Info("no dataset mail among unread messages")
		return 0, nil
	}

	handled := 0
	for _, e := range targets {
		if err := handler.Handle(e); err != nil {
			logger.Error(fmt.Sprintf("handle mail uid=%d: %v", e.UID, err))
			continue
		}
		handled++
	}

	logger.Info(fmt.Sprintf("mailbox check done in %v, handled %d message(s)", time.Since(startTime), handled))
	return handled, nil
}

// filterTargetEmails keeps subject matches, newest first.
func filterTargetEmails(emails []*Email, keyword string) []*Email {
	var targets []*Email
	for _, e := range emails {
		if strings.Contains(e.Subject, keyword) {
			targets = append(targets, e)
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Date.After(targets[j].Date)
	})

	return targets
}
