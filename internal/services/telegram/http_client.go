package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/services"
)

// HTTPDoer describes the HTTP client used to reach the Bot API.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	baseURL string
	token   string
	client  HTTPDoer
	// pollClient carries getUpdates calls, whose deadline must outlast the
	// long-poll window. Falls back to client when unset.
	pollClient HTTPDoer
}

// NewHTTPClient constructs a Bot API client against baseURL (usually
// https://api.telegram.org) using one doer for every call.
func NewHTTPClient(baseURL, token string, client HTTPDoer) Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
	}
}

// NewConfiguredClient builds a client from daemon configuration with a short
// deadline for interactive calls and a long one for update polling.
func NewConfiguredClient(cfg *config.Config) Client {
	requestTimeout := time.Duration(cfg.Telegram.RequestTimeout) * time.Second
	pollTimeout := time.Duration(cfg.Telegram.PollTimeout+cfg.Telegram.RequestTimeout) * time.Second
	return &httpClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.Telegram.APIBaseURL), "/"),
		token:      strings.TrimSpace(cfg.Telegram.Token),
		client:     &http.Client{Timeout: requestTimeout},
		pollClient: &http.Client{Timeout: pollTimeout},
	}
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	Description string              `json:"description"`
	ErrorCode   int                 `json:"error_code"`
	Parameters  *responseParameters `json:"parameters"`
}

type responseParameters struct {
	RetryAfter      int   `json:"retry_after"`
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
}

type replyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

func markupFor(keyboard *InlineKeyboard) *replyMarkup {
	if keyboard == nil || len(keyboard.Rows) == 0 {
		return nil
	}
	return &replyMarkup{InlineKeyboard: keyboard.Rows}
}

func (c *httpClient) apiCall(ctx context.Context, doer HTTPDoer, method string, payload, result any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("telegram %s: new request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if doer == nil {
		doer = c.client
	}
	resp, err := doer.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "api transport", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "read response", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return services.Wrap(services.ErrTransient, "telegram", method,
				fmt.Sprintf("http %d", resp.StatusCode), nil)
		}
		return services.Wrap(services.ErrTransient, "telegram", method, "decode response", err)
	}
	if !decoded.OK {
		return mapAPIError(method, resp.StatusCode, decoded)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "decode result", err)
	}
	return nil
}

// mapAPIError translates Bot API failures into the shared taxonomy. Edits
// against deleted messages and blocked chats come back as 400/403 with
// well-known descriptions; those mean the surface is gone, not that the
// call should be retried.
func mapAPIError(method string, httpStatus int, resp apiResponse) error {
	code := resp.ErrorCode
	if code == 0 {
		code = httpStatus
	}
	description := strings.TrimSpace(resp.Description)
	lower := strings.ToLower(description)

	switch {
	case code == http.StatusTooManyRequests:
		return &services.RateLimitError{
			RetryAfter: retryAfterFrom(resp, description),
			Err:        services.Wrap(services.ErrTransient, "telegram", method, description, nil),
		}
	case code == http.StatusForbidden:
		return services.Wrap(services.ErrSurfaceGone, "telegram", method, description, nil)
	case code == http.StatusBadRequest &&
		(strings.Contains(lower, "message is not modified") ||
			strings.Contains(lower, "message to edit not found")):
		return services.Wrap(services.ErrSurfaceGone, "telegram", method, description, nil)
	case code == http.StatusUnauthorized || code == http.StatusNotFound:
		return services.Wrap(services.ErrConfiguration, "telegram", method, "bot token rejected", nil)
	case code >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "telegram", method, description, nil)
	default:
		return services.Wrap(services.ErrValidation, "telegram", method, description, nil)
	}
}

func retryAfterFrom(resp apiResponse, description string) time.Duration {
	if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
		return time.Duration(resp.Parameters.RetryAfter) * time.Second
	}
	// "Too Many Requests: retry after 5"
	if idx := strings.LastIndex(strings.ToLower(description), "retry after "); idx >= 0 {
		rest := strings.TrimSpace(description[idx+len("retry after "):])
		if fields := strings.Fields(rest); len(fields) > 0 {
			if seconds, err := strconv.Atoi(fields[0]); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return time.Second
}

type sendMessagePayload struct {
	ChatID                int64        `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

func (c *httpClient) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) (MessageRef, error) {
	payload := sendMessagePayload{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           markupFor(keyboard),
	}
	var message Message
	if err := c.apiCall(ctx, c.client, "sendMessage", payload, &message); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: message.Chat.ID, MessageID: message.MessageID}, nil
}

type editMessagePayload struct {
	ChatID                int64        `json:"chat_id"`
	MessageID             int          `json:"message_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

func (c *httpClient) EditMessageText(ctx context.Context, ref MessageRef, text string, keyboard *InlineKeyboard) error {
	payload := editMessagePayload{
		ChatID:                ref.ChatID,
		MessageID:             ref.MessageID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           markupFor(keyboard),
	}
	// Result is a Message for regular edits; nothing downstream needs it.
	return c.apiCall(ctx, c.client, "editMessageText", payload, nil)
}

type answerCallbackPayload struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

func (c *httpClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	payload := answerCallbackPayload{CallbackQueryID: callbackID, Text: text, ShowAlert: showAlert}
	return c.apiCall(ctx, c.client, "answerCallbackQuery", payload, nil)
}

type getUpdatesPayload struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

func (c *httpClient) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	payload := getUpdatesPayload{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	}
	doer := c.pollClient
	if doer == nil {
		doer = c.client
	}
	var updates []Update
	if err := c.apiCall(ctx, doer, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *httpClient) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.apiCall(ctx, c.client, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type setMyCommandsPayload struct {
	Commands []BotCommand `json:"commands"`
}

func (c *httpClient) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	return c.apiCall(ctx, c.client, "setMyCommands", setMyCommandsPayload{Commands: commands}, nil)
}
