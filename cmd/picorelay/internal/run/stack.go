package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/pkg/bus"
	"github.com/tinyland-inc/picorelay/pkg/channels"
	"github.com/tinyland-inc/picorelay/pkg/config"
	"github.com/tinyland-inc/picorelay/pkg/dialogue"
	"github.com/tinyland-inc/picorelay/pkg/digest"
	"github.com/tinyland-inc/picorelay/pkg/dispatch"
	"github.com/tinyland-inc/picorelay/pkg/enrich"
	"github.com/tinyland-inc/picorelay/pkg/health"
	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/metrics"
	"github.com/tinyland-inc/picorelay/pkg/ratelimit"
	"github.com/tinyland-inc/picorelay/pkg/relay"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// Stack is a fully wired relay process.
type Stack struct {
	Config     *config.Config
	Store      *thread.Store
	Bus        *bus.MessageBus
	Engine     *relay.Engine
	Channel    *channels.TelegramChannel
	Dispatcher *dispatch.Dispatcher
	Registry   *prometheus.Registry
	Health     *health.Server
	Digest     *digest.Scheduler

	lock  *thread.DocumentLock
	botID int64
}

// NewStack locks and loads the thread store, identifies the bot and wires
// every component. operator receives relay notifications; nil routes them
// to the owner's Telegram chat.
func NewStack(ctx context.Context, cfg *config.Config, operator relay.Operator) (*Stack, error) {
	if err := cfg.ValidateForRun(); err != nil {
		return nil, err
	}

	lock, err := thread.AcquireLock(cfg.Relay.ThreadsFile)
	if err != nil {
		return nil, err
	}
	s := &Stack{Config: cfg, lock: lock}

	s.Store = thread.NewStore(cfg.Relay.ThreadsFile)
	if err := s.Store.Load(); err != nil {
		s.Close()
		return nil, fmt.Errorf("loading threads: %w", err)
	}

	client, err := channels.NewTelegramClient(cfg.Telegram.Token, cfg.Telegram.Proxy)
	if err != nil {
		s.Close()
		return nil, err
	}
	botID, botName, err := client.Identify(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.botID = botID
	logger.InfoCF("run", "Bot identified", map[string]any{"bot_id": botID, "username": botName})

	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(s.Registry)

	s.Bus = bus.NewMessageBus()
	s.Channel = channels.NewTelegramChannel(client, s.Bus, cfg.Telegram.OwnerID, cfg.Telegram.AllowFrom)
	if operator == nil {
		operator = channels.NewNotifier(s.Bus, s.Channel.Name(), cfg.Telegram.OwnerID)
	}

	trigger := enrich.NewTrigger(client, s.Store,
		enrich.WithPhotoLimit(cfg.Relay.PhotoLimit),
		enrich.WithMediaDir(cfg.Relay.MediaDir),
	)
	s.Engine = relay.NewEngine(s.Store, client, operator, trigger,
		relay.NewResolver(botID, cfg.Relay.FallbackToSender),
		relay.WithPacer(ratelimit.NewPacer(cfg.Relay.SendInterval(), cfg.Relay.SendBurst)),
		relay.WithMetrics(m),
		relay.WithOperatorChat(cfg.Telegram.OwnerID),
	)
	s.Dispatcher = dispatch.New(s.Bus, s.Engine, dialogue.New(s.Engine, s.Store))

	if cfg.Gateway.Port != 0 {
		s.Health = health.NewServer(s.Store, s.Registry, internal.GetVersion())
		s.Health.SetBotReady(true)
	}
	if cfg.Digest.Enabled {
		s.Digest, err = digest.NewScheduler(cfg.Digest.Cron, s.Store, operator)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// BotID is the relay's own platform identity.
func (s *Stack) BotID() int64 { return s.botID }

// Start launches the dispatcher, the Telegram channel and the optional
// health server and digest scheduler. They stop when ctx is done.
func (s *Stack) Start(ctx context.Context) error {
	if s.Health != nil {
		errs, err := s.Health.Start(s.Config.Gateway.Addr())
		if err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
		go func() {
			if err := <-errs; err != nil {
				logger.ErrorCF("health", "Health server error", map[string]any{"error": err.Error()})
			}
		}()
	}

	go s.Dispatcher.Run(ctx)

	if err := s.Channel.Start(ctx); err != nil {
		return err
	}
	if s.Digest != nil {
		go s.Digest.Run(ctx)
	}
	return nil
}

// Stop shuts the components down in reverse start order and releases the
// store lock.
func (s *Stack) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Channel.Stop(ctx); err != nil {
		logger.WarnCF("run", "Channel stop incomplete", map[string]any{"error": err.Error()})
	}
	s.Bus.Close()
	if s.Health != nil {
		if err := s.Health.Shutdown(ctx); err != nil {
			logger.WarnCF("run", "Health server shutdown incomplete", map[string]any{"error": err.Error()})
		}
	}
	if err := s.Store.Flush(); err != nil {
		logger.ErrorCF("run", "Final flush failed", map[string]any{"error": err.Error()})
	}
	s.Close()
}

// Close releases the store lock.
func (s *Stack) Close() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: releasing threads lock: %v\n", err)
	}
	s.lock = nil
}
