package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finance-bot/internal/model"
	"finance-bot/internal/repository"
)

const workerIdleTimeout = 5 * time.Minute

// Bot adapts Telegram updates onto the dialog engine. Messages from one
// sender are handled strictly in order by a per-user worker; different
// users run concurrently.
type Bot struct {
	api      *tgbotapi.BotAPI
	userRepo *repository.UserRepository
	dialog   *Dialog

	mu     sync.Mutex
	queues map[int64]chan *tgbotapi.Message
	wg     sync.WaitGroup
}

func New(token string, userRepo *repository.UserRepository, dialog *Dialog) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:      api,
		userRepo: userRepo,
		dialog:   dialog,
		queues:   make(map[int64]chan *tgbotapi.Message),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		b.dispatch(ctx, update.Message)
	}

	b.wg.Wait()
	return nil
}

// dispatch enqueues the message for its sender's worker, creating the
// worker on demand. Enqueueing happens under the same lock as worker
// shutdown so a message can never land in a dead queue.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[userID]
	if !ok {
		q = make(chan *tgbotapi.Message, 32)
		b.queues[userID] = q
		b.wg.Add(1)
		go b.worker(ctx, userID, q)
	}

	select {
	case q <- msg:
	default:
		log.Printf("[warn] queue overflow, dropping message from %d", userID)
	}
}

func (b *Bot) worker(ctx context.Context, userID int64, q chan *tgbotapi.Message) {
	defer b.wg.Done()

	idle := time.NewTimer(workerIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q:
			if err := b.handleMessage(ctx, msg); err != nil {
				log.Printf("handle message from %d: %v", userID, err)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(workerIdleTimeout)
		case <-idle.C:
			b.mu.Lock()
			if len(q) == 0 {
				delete(b.queues, userID)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(workerIdleTimeout)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.Ensure(ctx, msg.From.ID)
	if err != nil {
		// The store being unavailable is fatal for the interaction, not
		// something to mask with a retry.
		return fmt.Errorf("ensure user: %w", err)
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		return b.handleCommand(msg, user)
	}

	replies := b.dialog.Handle(ctx, user, msg.Text)
	return b.send(msg.Chat.ID, replies)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message, user *model.User) error {
	switch msg.Command() {
	case "start":
		b.dialog.clearState(user.TelegramID)
		name := msg.From.FirstName
		if name == "" {
			name = "друг"
		}
		text := fmt.Sprintf("Привет, %s!\nЯ бюджет-трекер, для подробной информации используй команду /help. %s", name, msgMainMenu)
		return b.send(msg.Chat.ID, []Reply{{Text: text, Keyboard: mainMenuKeyboard()}})
	case "help":
		return b.send(msg.Chat.ID, []Reply{{Text: helpMsg, Keyboard: mainMenuKeyboard()}})
	case "cancel":
		b.dialog.clearState(user.TelegramID)
		return b.send(msg.Chat.ID, []Reply{{Text: msgMainMenu, Keyboard: mainMenuKeyboard()}})
	default:
		return b.send(msg.Chat.ID, []Reply{{Text: "Команда не поддерживается. Загляни в /help."}})
	}
}

// ExpireStaleDialogs is the hook for the periodic sweep.
func (b *Bot) ExpireStaleDialogs(maxIdle time.Duration) {
	if n := b.dialog.ExpireStale(maxIdle); n > 0 {
		log.Printf("[info] expired %d stale dialogs", n)
	}
}

func (b *Bot) send(chatID int64, replies []Reply) error {
	for _, r := range replies {
		if err := b.sendOne(chatID, r); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendOne(chatID int64, r Reply) error {
	switch {
	case len(r.Document) > 0:
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.DocumentName, Bytes: r.Document})
		_, err := b.api.Send(doc)
		return err
	case len(r.Photo) > 0:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: r.Photo})
		photo.Caption = r.PhotoCaption
		_, err := b.api.Send(photo)
		return err
	case r.PhotoURL != "":
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(r.PhotoURL))
		photo.Caption = r.PhotoCaption
		_, err := b.api.Send(photo)
		return err
	default:
		msg := tgbotapi.NewMessage(chatID, r.Text)
		if r.Keyboard != nil {
			msg.ReplyMarkup = r.Keyboard
		}
		_, err := b.api.Send(msg)
		return err
	}
}
