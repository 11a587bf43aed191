// Package mailbox is the IMAP search/fetch client. One Client serves one
// synchronous fetch cycle: connect, select the all-mail view read-only,
// search a date window, fetch the hits in batches, logout.
package mailbox

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// RawMessage is one fetched message, still undecoded.
type RawMessage struct {
	UID  uint32
	Body []byte
}

// ClientConfig configuration for the IMAP client
type ClientConfig struct {
	Server      string // host:port
	Username    string
	Password    string
	Mailbox     string // e.g. "[Gmail]/All Mail"
	DialTimeout time.Duration
}

// Client IMAP client for a single mailbox
type Client struct {
	config ClientConfig
	client *client.Client
	logger *slog.Logger
}

// NewClient creates a new IMAP client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger.With("component", "mailbox", "server", cfg.Server),
	}
}

// Connect dials the server over TLS, logs in and selects the configured
// mailbox in read-only mode.
func (c *Client) Connect() error {
	timeout := c.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c.logger.Info("connecting to IMAP server")

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", c.config.Server, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := imapClient.Login(c.config.Username, c.config.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select(c.config.Mailbox, true); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to select mailbox %q: %w", c.config.Mailbox, err)
	}

	c.client = imapClient
	c.logger.Info("connected", "mailbox", c.config.Mailbox)
	return nil
}

// Close logs out from the server.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}

// Search returns the UIDs of messages received within [since, before].
// The end date is inclusive; the server's BEFORE is exclusive, so the
// upper bound is advanced by one day.
func (c *Client) Search(since, before time.Time) ([]uint32, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.Before = before.AddDate(0, 0, 1)

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	c.logger.Info("search completed",
		"since", since.Format("2006-01-02"),
		"before", before.Format("2006-01-02"),
		"found", len(uids))
	return uids, nil
}

// Fetch retrieves full message bodies for uids, batchSize per round trip.
// A failed batch is recorded in the report and skipped; remaining batches
// are still fetched. Batches are never retried.
func (c *Client) Fetch(uids []uint32, batchSize int) ([]*RawMessage, *FetchReport) {
	report := &FetchReport{Requested: len(uids)}
	if c.client == nil {
		report.AddBatchFailure(uids, fmt.Errorf("not connected"))
		return nil, report
	}

	var messages []*RawMessage
	for _, batch := range Chunk(uids, batchSize) {
		fetched, err := c.fetchBatch(batch)
		if err != nil {
			c.logger.Error("failed to fetch batch", "uids", batch, "error", err)
			report.AddBatchFailure(batch, err)
			continue
		}
		messages = append(messages, fetched...)
	}

	report.Fetched = len(messages)
	return messages, report
}

func (c *Client) fetchBatch(uids []uint32) ([]*RawMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqSet, items, ch)
	}()

	var messages []*RawMessage
	for msg := range ch {
		body := msg.GetBody(section)
		if body == nil {
			c.logger.Warn("message has no body section", "uid", msg.Uid)
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			c.logger.Warn("failed to read message body", "uid", msg.Uid, "error", err)
			continue
		}
		messages = append(messages, &RawMessage{UID: msg.Uid, Body: raw})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	return messages, nil
}

// Chunk partitions uids into ceil(len/size) batches covering every uid
// exactly once, preserving order.
func Chunk(uids []uint32, size int) [][]uint32 {
	if size < 1 {
		size = 1
	}
	var batches [][]uint32
	for start := 0; start < len(uids); start += size {
		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		batches = append(batches, uids[start:end])
	}
	return batches
}
