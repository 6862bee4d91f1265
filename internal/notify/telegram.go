// Package notify delivers manager notifications over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"showroom/internal/booking"
	"showroom/internal/events"
	"showroom/internal/metrics"
	"showroom/internal/model"
)

const channel = "telegram"

// BotAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		RetryDelays: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return 0
	}
	if attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}

// Config configures a TelegramNotifier.
type Config struct {
	ChatIDs []int64
	// PerSecond and Burst bound outgoing messages across all chats.
	PerSecond float64
	Burst     int
	QueueSize int
	Retry     RetryConfig
}

// TelegramNotifier sends plain-text messages to the configured manager chats.
// Event handlers only enqueue; Start drains the queue so that a slow Telegram
// never holds up a booking request.
type TelegramNotifier struct {
	bot     BotAPI
	chatIDs []int64
	limiter *rate.Limiter
	retry   RetryConfig
	queue   chan string
	logger  zerolog.Logger

	wg sync.WaitGroup
}

func NewTelegramNotifier(bot BotAPI, cfg Config, logger *zerolog.Logger) *TelegramNotifier {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: append([]int64(nil), cfg.ChatIDs...),
		limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst),
		retry:   cfg.Retry,
		queue:   make(chan string, cfg.QueueSize),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Subscribe registers the notifier on the bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.AppointmentCreated, n.handleCreated)
	bus.Subscribe(events.AppointmentStatusChanged, n.handleStatusChanged)
}

func (n *TelegramNotifier) handleCreated(ev events.Event) error {
	var a model.Appointment
	if err := ev.Decode(&a); err != nil {
		return fmt.Errorf("decode appointment: %w", err)
	}
	n.Enqueue(FormatNewAppointment(a))
	return nil
}

func (n *TelegramNotifier) handleStatusChanged(ev events.Event) error {
	var change booking.StatusChange
	if err := ev.Decode(&change); err != nil {
		return fmt.Errorf("decode status change: %w", err)
	}
	if change.Appointment.Status != model.StatusCancelled {
		return nil
	}
	a := change.Appointment
	n.Enqueue(fmt.Sprintf("Test drive cancelled: %s on %s at %s", a.CustomerName, a.Date, a.Time))
	return nil
}

// Enqueue schedules text for delivery. A full queue drops the message.
func (n *TelegramNotifier) Enqueue(text string) {
	select {
	case n.queue <- text:
	default:
		metrics.IncNotification(channel, "dropped")
		n.logger.Warn().Msg("notification queue full, message dropped")
	}
}

// Start delivers queued messages in the background until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go n.loop(ctx)
	n.logger.Info().Int("chats", len(n.chatIDs)).Msg("notifier started")
}

func (n *TelegramNotifier) loop(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("notifier stopped")
			return
		case text := <-n.queue:
			if err := n.Broadcast(ctx, text); err != nil {
				n.logger.Error().Err(err).Msg("notification failed")
			}
		}
	}
}

// Wait blocks until the delivery loop has returned.
func (n *TelegramNotifier) Wait() {
	n.wg.Wait()
}

// Broadcast sends text to every manager chat.
func (n *TelegramNotifier) Broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.chatIDs {
		if err := n.send(ctx, chatID, text); err != nil {
			metrics.IncNotification(channel, "failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		metrics.IncNotification(channel, "sent")
	}
	return errors.Join(errs...)
}

func (n *TelegramNotifier) send(ctx context.Context, chatID int64, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	var lastErr error
	for attempt := 0; attempt <= n.retry.MaxRetries; attempt++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		wait := n.retry.delay(attempt)
		if tgErr, ok := telegramError(err); ok {
			switch tgErr.Code {
			case 429:
				if tgErr.RetryAfter > 0 {
					wait = time.Duration(tgErr.RetryAfter) * time.Second
				}
				n.logger.Info().Dur("retry_after", wait).Int("attempt", attempt).Msg("rate limited by Telegram, waiting")
			case 400, 403:
				// Bad request or the bot was removed from the chat; retrying will not help.
				return err
			}
		}
		if attempt == n.retry.MaxRetries {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func telegramError(err error) (*tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

// FormatNewAppointment renders the manager message for a new booking.
func FormatNewAppointment(a model.Appointment) string {
	var b strings.Builder
	b.WriteString("New test drive request\n")
	fmt.Fprintf(&b, "When: %s %s\n", a.Date, a.Time)
	fmt.Fprintf(&b, "Customer: %s\n", a.CustomerName)
	for _, line := range [][2]string{
		{"Phone", a.CustomerPhone},
		{"Email", a.CustomerEmail},
		{"Vehicle", a.VehicleReference},
		{"Notes", a.Notes},
	} {
		if line[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", line[0], line[1])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
