package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsdigest/internal/ports"
)

// Notifier sends digests to a chat via the bot API.
type Notifier struct {
	botToken string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the bot token.
func NewNotifier(botToken string) *Notifier {
	return &Notifier{
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendDigest posts a MarkdownV2 message to the requester's chat.
func (n *Notifier) SendDigest(ctx context.Context, requesterID int64, text string) error {
	if n.botToken == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(requesterID, 10))
	form.Set("text", text)
	form.Set("parse_mode", "MarkdownV2")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
