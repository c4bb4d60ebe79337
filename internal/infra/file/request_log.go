package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"totem-quiz-bot/internal/domain"
)

const (
	feedbackFile = "feedbacks.txt"
	contactFile  = "contact_requests.txt"
)

// RequestLog appends feedback and contact requests to plain text files under
// a base directory. Writes are serialised so lines from concurrent chats do
// not interleave.
type RequestLog struct {
	base string
	mu   sync.Mutex
}

func NewRequestLog(base string) (*RequestLog, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &RequestLog{base: base}, nil
}

func (l *RequestLog) AppendFeedback(_ context.Context, entry domain.FeedbackEntry) error {
	line := fmt.Sprintf("%s %s (@%s): %s\n",
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.UserID,
		entry.Username,
		oneLine(entry.Text),
	)
	return l.append(feedbackFile, line)
}

func (l *RequestLog) AppendContact(_ context.Context, req domain.ContactRequest) error {
	block := fmt.Sprintf("New contact request %s\nUser: %s (ID: %s)\nTotem animal: %s\nAt: %s\n\n",
		req.ID,
		req.FullName,
		req.UserID,
		req.AnimalKey,
		req.CreatedAt.UTC().Format(time.RFC3339),
	)
	return l.append(contactFile, block)
}

func (l *RequestLog) append(name, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(l.base, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
