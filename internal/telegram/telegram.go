// Package telegram sends digest messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhij1306/digestbot/internal/text"
)

// ErrNoCredentials is returned when the bot token or chat ID is missing.
// It is the only send failure treated as fatal by callers.
var ErrNoCredentials = errors.New("telegram credentials missing")

// MaxMessage is the per-message character budget, kept under Telegram's
// 4096 limit to leave headroom for encoding.
const MaxMessage = 3900

const defaultBaseURL = "https://api.telegram.org"

// Client posts messages to one chat via a bot token.
type Client struct {
	BaseURL string
	token   string
	chatID  string
	client  *http.Client
	// pause between chunk sends, shortened in tests
	pause time.Duration
}

// New creates a new Client.
func New(token, chatID string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
		pause:   400 * time.Millisecond,
	}
}

// IsConfigured returns whether both token and chat ID are set. These are
// the only credentials whose absence is fatal to a run.
func (c *Client) IsConfigured() bool {
	return c.token != "" && c.chatID != ""
}

// Send splits the message into chunks and posts each one. It returns the
// number of chunks delivered; a chunk failure stops the send.
func (c *Client) Send(message string) (int, error) {
	if !c.IsConfigured() {
		return 0, ErrNoCredentials
	}

	chunks := Chunk(message, MaxMessage)
	log.Printf("Sending message (%d chars, %d chunks)", len(message), len(chunks))

	for i, chunk := range chunks {
		if err := c.sendChunk(chunk); err != nil {
			return i, fmt.Errorf("sending chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if i < len(chunks)-1 {
			time.Sleep(c.pause)
		}
	}
	return len(chunks), nil
}

func (c *Client) sendChunk(body string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    body,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.token)
	resp, err := c.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("telegram API %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Chunk splits s into pieces of at most limit characters, preferring to
// break at a newline when one exists more than 50 characters into the
// piece.
func Chunk(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}

	var chunks []string
	start := 0
	for start < len(s) {
		end := start + limit
		if end > len(s) {
			end = len(s)
		}
		if end < len(s) {
			if nl := strings.LastIndex(s[start:end], "\n"); nl > 50 {
				end = start + nl
			} else if b := text.Boundary(s[start:], end-start); b > 0 {
				end = start + b
			} else {
				// limit is smaller than the rune at start; take it whole
				_, size := utf8.DecodeRuneInString(s[start:])
				end = start + size
			}
		}
		chunks = append(chunks, s[start:end])
		start = end
	}
	return chunks
}
