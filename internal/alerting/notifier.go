package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"set-index-snapshots/internal/snapshot"
)

// Notification 封装一次已入档窗口的播报内容。
type Notification struct {
	Date    string
	Time    string
	Period  snapshot.Period
	Reading snapshot.Reading
}

// Notifier 定义播报输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 播报器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !apiResp.OK {
		if apiResp.Description != "" {
			return fmt.Errorf("telegram api rejected message: %s", apiResp.Description)
		}
		return fmt.Errorf("telegram api rejected message (status %d)", resp.StatusCode)
	}

	n.logger.Debug().Str("period", string(note.Period)).Msg("window announcement sent")
	return nil
}

func renderMessage(note Notification) string {
	label := strings.ToUpper(string(note.Period))
	if note.Reading.Failed() {
		return fmt.Sprintf("2D %s %s %s\nrecording failed: %s", label, note.Date, note.Time, note.Reading.Error)
	}
	return fmt.Sprintf(
		"2D %s %s %s\nresult: %s\nSET index: %s\nvalue: %s",
		label, note.Date, note.Time,
		note.Reading.TwoD, note.Reading.Set, note.Reading.Value,
	)
}

var _ Notifier = (*TelegramNotifier)(nil)
