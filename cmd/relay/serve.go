package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/sudokucon-relay/internal/config"
	"github.com/DoyleJ11/sudokucon-relay/internal/httpapi"
	"github.com/DoyleJ11/sudokucon-relay/internal/hub"
	"github.com/DoyleJ11/sudokucon-relay/internal/relay"
	"github.com/DoyleJ11/sudokucon-relay/internal/sudokupad"
	"github.com/DoyleJ11/sudokucon-relay/internal/ws"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control API and, if a room is configured, join it",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	pad := sudokupad.NewClient(cfg.BaseURL, nil, logger)
	opts := hub.Options{
		Dialer:       ws.WebsocketDialer{},
		ChannelURL:   pad.ChannelURL,
		Logger:       logger,
		WriteTimeout: cfg.WriteTimeout,
	}
	if cfg.SeedPuzzles {
		opts.Seeder = pad
	}
	h := hub.NewHub(ctx, opts)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, pad.ViewURL, logger),
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		// closing the relay clears our pointer in the room
		done := make(chan struct{})
		select {
		case h.Inbox() <- hub.ShutdownHub{Done: done}:
			<-done
		case <-h.Done():
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.RoomID != "" {
		g.Go(func() error {
			autoConnect(ctx, h, pad, cfg)
			return nil
		})
	}

	return g.Wait()
}

// autoConnect joins the configured room. Failure is logged; the API stays up
// so the user can retry.
func autoConnect(ctx context.Context, h *hub.Hub, pad *sudokupad.Client, cfg *config.Config) {
	user := cfg.Identity()
	reply := make(chan hub.ConnectResult, 1)
	select {
	case h.Inbox() <- hub.Connect{RoomID: cfg.RoomID, User: user, Settings: cfg.Settings(), Reply: reply}:
	case <-ctx.Done():
		return
	}
	var res hub.ConnectResult
	select {
	case res = <-reply:
	case <-h.Done():
		return
	}
	if res.Err != nil {
		logger.Error("auto-connect failed", zap.String("room", cfg.RoomID), zap.Error(res.Err))
		return
	}
	logger.Info("auto-connected",
		zap.String("room", cfg.RoomID),
		zap.String("view_url", pad.ViewURL(relay.DownstreamChannel(cfg.RoomID, user.UserID), user)),
	)
}
