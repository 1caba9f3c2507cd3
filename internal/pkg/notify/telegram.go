package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between two messages to the same chat; Telegram answers 429
// above roughly 30 messages a minute.
const telegramSendInterval = 2 * time.Second

const queueSize = 100

var (
	ErrNotifierStopped = errors.New("notifier stopped")
	ErrQueueFull       = errors.New("message queue is full")
)

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier queues score alerts and sends them from a single
// background worker, spacing messages by the send interval.
type TelegramNotifier struct {
	bot      sender
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	lastSend time.Time

	// stateMu orders enqueues before Stop: once stopped is set no alert
	// can land in the queue after the sender has drained it.
	stateMu sync.RWMutex
	stopped bool

	queue     chan ScoreChange
	queueDone chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

var _ Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return newTelegramNotifier(bot, chatID, telegramSendInterval), nil
}

func newTelegramNotifier(bot sender, chatID int64, interval time.Duration) *TelegramNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		interval:  interval,
		queue:     make(chan ScoreChange, queueSize),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go n.messageSender()
	return n
}

// QueueLen returns the number of alerts waiting to be sent.
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

// NotifyScoreChange queues an alert without blocking.
func (n *TelegramNotifier) NotifyScoreChange(ctx context.Context, change ScoreChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	if n.stopped {
		return ErrNotifierStopped
	}

	select {
	case n.queue <- change:
		return nil
	default:
		slog.Warn("Telegram message queue is full, dropping alert", "feed", change.Current.Feed, "game_id", change.Current.GameID)
		return ErrQueueFull
	}
}

// Stop stops accepting alerts and waits until the queued ones are sent.
func (n *TelegramNotifier) Stop() {
	n.stateMu.Lock()
	if !n.stopped {
		n.stopped = true
		n.cancel()
	}
	n.stateMu.Unlock()
	<-n.queueDone
}

func (n *TelegramNotifier) messageSender() {
	defer close(n.queueDone)
	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case change := <-n.queue:
					n.send(change)
				default:
					return
				}
			}
		case change := <-n.queue:
			n.send(change)
		}
	}
}

// send waits out the rate limit and delivers one alert.
func (n *TelegramNotifier) send(change ScoreChange) {
	text := formatScoreChange(change)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	n.mu.Lock()
	defer n.mu.Unlock()

	if wait := n.interval - time.Since(n.lastSend); wait > 0 {
		time.Sleep(wait)
	}

	start := time.Now()
	n.lastSend = start
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Telegram send: failed", "error", err, "feed", change.Current.Feed, "game_id", change.Current.GameID)
		return
	}
	slog.Info("Telegram send: success",
		"feed", change.Current.Feed,
		"game_id", change.Current.GameID,
		"send_duration", time.Since(start),
		"delay_since_detection", time.Since(change.Current.RecordedAt),
		"queue_length", len(n.queue))
}

func formatScoreChange(change ScoreChange) string {
	var b strings.Builder
	b.WriteString("*Score update*\n\n")
	line := change.Current.Line
	if line == "" {
		line = change.Current.GameID
	}
	fmt.Fprintf(&b, "*%s*\n", escapeMarkdown(line))
	if change.Current.Status != "" {
		fmt.Fprintf(&b, "%s\n", escapeMarkdown(change.Current.Status))
	}
	if prev := change.Previous; prev != nil {
		was := prev.Line
		if prev.Status != "" {
			was += " (" + prev.Status + ")"
		}
		fmt.Fprintf(&b, "_Was: %s_\n", escapeMarkdown(was))
	}
	fmt.Fprintf(&b, "Feed: %s\n", escapeMarkdown(change.Current.Feed))
	return b.String()
}

var markdownReplacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

func escapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}
