package lib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

const telegramBaseURL = "https://api.telegram.org/bot%s/sendMessage"

type TelegramNotifier struct {
	Token   string
	ChatID  string
	Enabled bool

	client *http.Client
}

func NewTelegramNotifier() *TelegramNotifier {
	enabled, _ := strconv.ParseBool(os.Getenv("TELEGRAM_NOTIFICATIONS_ENABLED"))
	return &TelegramNotifier{
		Token:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		Enabled: enabled,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) IsConfigured() bool {
	return t.Token != "" && t.ChatID != "" && t.Enabled
}

// SendMessage posts an HTML-formatted message to the configured chat.
func (t *TelegramNotifier) SendMessage(text string) error {
	if !t.IsConfigured() {
		return nil
	}
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf(telegramBaseURL, t.Token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
