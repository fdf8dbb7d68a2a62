package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/api"
	"github.com/hackn3y/intentionalmovement-sub001/internal/config"
	"github.com/hackn3y/intentionalmovement-sub001/internal/devserver"
	"github.com/hackn3y/intentionalmovement-sub001/internal/engine"
	"github.com/hackn3y/intentionalmovement-sub001/internal/logger"
	"github.com/hackn3y/intentionalmovement-sub001/internal/metrics"
	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
	"github.com/hackn3y/intentionalmovement-sub001/internal/realtime"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
	"github.com/hackn3y/intentionalmovement-sub001/internal/store"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	email := flag.String("email", "", "log in with this account before syncing")
	password := flag.String("password", "", "password for -email")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	lg, err := logger.New(logger.Config{Development: cfg.Development})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg, *email, *password); err != nil {
		lg.Errorw("syncd exiting", "err", err)
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *zap.SugaredLogger, email, password string) error {
	if cfg.DevServer.Enabled {
		ds := devserver.New(cfg.DevServer.JWTSecret, lg)
		go func() {
			if err := ds.Listen(":" + cfg.DevServer.Port); err != nil {
				lg.Errorw("dev server stopped", "err", err)
			}
		}()
		defer func() { _ = ds.Shutdown() }()
	}

	sess := session.NewStore(cfg.Session.CredentialsFile)
	apiClient := api.NewClient(api.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.APITimeout,
		MaxIdleConns: cfg.API.MaxIdleConns,
	}, sess, lg)
	rt := realtime.NewClient(realtime.Config{
		URL:               cfg.Realtime.URL,
		ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
	}, sess, lg)
	st := store.New(lg)
	eng := engine.New(sess, apiClient, rt, st, lg)

	ctx := context.Background()
	if email != "" {
		// the embedded dev server may still be binding its port
		var lastErr error
		for i := 0; i < 5; i++ {
			if _, lastErr = apiClient.Login(ctx, email, password); lastErr == nil {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if lastErr != nil {
			return lastErr
		}
		lg.Infow("logged in", "email", email)
	}

	if err := eng.Start(ctx); err != nil {
		lg.Warnw("realtime connect failed, continuing on REST only", "err", err)
	}
	defer eng.Stop()

	if err := eng.FetchConversations(ctx); err != nil {
		lg.Warnw("conversation fetch failed", "err", err)
	}
	if err := eng.FetchNotifications(ctx, 50, 0, false); err != nil {
		lg.Warnw("notification fetch failed", "err", err)
	}
	if serverUnread, err := eng.ServerUnreadNotifications(ctx); err == nil {
		if serverUnread != st.UnreadNotifications() {
			lg.Warnw("unread notification counter drift",
				"server", serverUnread, "local", st.UnreadNotifications())
		}
	}
	lg.Infow("initial sync complete",
		"conversations", len(st.Conversations()),
		"unread_messages", st.UnreadMessages(),
		"unread_notifications", st.UnreadNotifications(),
	)

	subMsg := rt.OnNewMessage(func(p model.MessagePayload) {
		m := p.Normalize()
		lg.Infow("new message", "from", m.SenderID, "content", m.Content)
	})
	defer rt.Off(subMsg)
	subNotif := rt.OnNotification(func(p model.NotificationPayload) {
		n := p.Normalize()
		lg.Infow("notification", "type", n.Type, "message", n.Message)
	})
	defer rt.Off(subNotif)
	subTyping := rt.OnTyping(func(p realtime.TypingPayload) {
		lg.Infow("typing", "from", p.SenderID, "conversation", p.ConversationID, "typing", p.IsTyping)
	})
	defer rt.Off(subTyping)

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			lg.Infow("metrics listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				lg.Warnw("metrics listener stopped", "err", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	lg.Infow("signal received, shutting down", "signal", s.String())
	return nil
}
