package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-token", "12345")
	c.BaseURL = srv.URL
	c.pause = 0
	c.client = &http.Client{Timeout: 5 * time.Second}
	return c
}

func TestSendSingleChunk(t *testing.T) {
	var gotPath string
	var gotText string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotText = payload["text"]
		w.WriteHeader(http.StatusOK)
	})

	n, err := c.Send("hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 chunk, got %d", n)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotText != "hello" {
		t.Errorf("unexpected text %q", gotText)
	}
}

func TestSendChunksLongMessage(t *testing.T) {
	var texts []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		texts = append(texts, payload["text"])
		w.WriteHeader(http.StatusOK)
	})

	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("• A headline line\n")
	}
	msg := b.String()

	n, err := c.Send(msg)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n < 2 {
		t.Fatalf("expected multiple chunks, got %d", n)
	}
	if strings.Join(texts, "") != msg {
		t.Error("chunks do not reassemble to the original message")
	}
	for i, text := range texts {
		if len(text) > MaxMessage {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(text))
		}
	}
}

func TestSendFailureStops(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	})

	n, err := c.Send("hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 {
		t.Errorf("expected 0 delivered chunks, got %d", n)
	}
	if calls != 1 {
		t.Errorf("expected no retry, got %d calls", calls)
	}
}

func TestSendMissingCredentials(t *testing.T) {
	c := New("", "")
	if c.IsConfigured() {
		t.Error("expected unconfigured client")
	}
	if _, err := c.Send("hello"); err == nil {
		t.Error("expected error with missing credentials")
	}
}

func TestChunkBreaksAtNewline(t *testing.T) {
	line := strings.Repeat("a", 80) + "\n"
	msg := strings.Repeat(line, 10) // 810 chars
	chunks := Chunk(msg, 500)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], strings.Repeat("a", 80)) {
		t.Error("expected first chunk to end at a newline boundary")
	}
	if strings.Join(chunks, "") != msg {
		t.Error("chunks do not reassemble to the original message")
	}
}

func TestChunkMultibyteNoNewlines(t *testing.T) {
	// With no newline to break at, the cut must still land on a rune
	// boundary so no chunk carries a split ₹ or emoji.
	msg := strings.Repeat("₹📈", 100) // 700 bytes
	chunks := Chunk(msg, 100)

	if strings.Join(chunks, "") != msg {
		t.Error("chunks do not reassemble to the original message")
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(chunk))
		}
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d is invalid UTF-8: %q", i, chunk)
		}
	}
}

func TestChunkLimitSmallerThanRune(t *testing.T) {
	chunks := Chunk("📈📈", 2)
	if strings.Join(chunks, "") != "📈📈" {
		t.Errorf("chunks do not reassemble: %#v", chunks)
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d is invalid UTF-8: %q", i, chunk)
		}
	}
}

func TestChunkShortMessage(t *testing.T) {
	chunks := Chunk("short", 100)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("unexpected chunks: %#v", chunks)
	}
}

func TestChunkNoNewlines(t *testing.T) {
	msg := strings.Repeat("x", 250)
	chunks := Chunk(msg, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != msg {
		t.Error("chunks do not reassemble to the original message")
	}
}
