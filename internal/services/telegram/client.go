package telegram

import "context"

// User is a Telegram account, either the bot itself or a sender.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is an incoming or sent chat message.
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// CallbackQuery is a button tap on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Update is one long-poll event.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// BotCommand is one entry in the bot's command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// InlineButton is one tappable control under a message.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboard is a grid of buttons rendered under a message.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// MessageRef identifies a sent message for later edits.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Client defines the chat operations used by the bot loop, the task
// monitor, and the notifier. Messages are sent with HTML parse mode.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) (MessageRef, error)
	EditMessageText(ctx context.Context, ref MessageRef, text string, keyboard *InlineKeyboard) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
	GetMe(ctx context.Context) (*User, error)
	SetMyCommands(ctx context.Context, commands []BotCommand) error
}
