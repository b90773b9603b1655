package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"telecast/pkg/logx"
)

// Config carries the bot credentials and polling behaviour.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter owns the telebot instance. It serves two roles: outbound delivery
// for broadcasts and verification codes, and a small inbound command surface
// (/start, /getchatid) so operators can discover their chat ids.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	runMu   sync.Mutex
	running bool
}

// chatRecipient lets a raw channel address act as a telebot recipient.
// Telegram accepts both numeric chat ids and @username strings here, so no
// parsing is needed on our side.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	reply := func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		return c.Send(fmt.Sprintf("Your chat id is %s.", strconv.FormatInt(chat.ID, 10)))
	}
	a.bot.Handle("/start", reply)
	a.bot.Handle("/getchatid", reply)
}

// Start runs the long-poll loop until Stop is called. It returns once the
// loop is launched; polling errors surface through telebot's own reporter.
func (a *Adapter) Start() {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.runMu.Unlock()

	go func() {
		a.log.Info("polling started", logx.String("bot", a.bot.Me.Username))
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
}

func (a *Adapter) Stop() {
	a.runMu.Lock()
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()
	if !wasRunning {
		return
	}
	// telebot's Stop is expected to be fast; don't let a stuck long-poll
	// hold up shutdown.
	go a.bot.Stop()
}

// BotLink is the t.me link operators must open before the bot may message
// them. Used in the login error when a code cannot be delivered.
func (a *Adapter) BotLink() string {
	return "https://t.me/" + a.bot.Me.Username
}

// SendText delivers a plain text message to a channel address.
func (a *Adapter) SendText(ctx context.Context, address, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(chatRecipient(address), text)
	return err
}

// SendPhoto delivers an image with the broadcast body as its caption.
func (a *Adapter) SendPhoto(ctx context.Context, address string, photo io.Reader, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := &tele.Photo{File: tele.FromReader(photo), Caption: caption}
	_, err := a.bot.Send(chatRecipient(address), p)
	return err
}
