package notify

import (
	"context"
	"fmt"
	"time"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"

	"github.com/go-resty/resty/v2"
)

const TelegramURL = "https://api.telegram.org"

// Telegram posts messages to one chat through the Bot API.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = TelegramURL
	}
	return &Telegram{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		token:  token,
		chatID: chatID,
	}
}

type telegramReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	var reply telegramReply
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"chat_id": t.chatID, "text": text}).
		SetResult(&reply).
		SetError(&reply).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNotification, err)
	}
	if resp.IsError() || !reply.OK {
		return fmt.Errorf("%w: telegram %d %s", types.ErrNotification, resp.StatusCode(), reply.Description)
	}
	return nil
}
