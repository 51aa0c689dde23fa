package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/DrRago/YTSync-Plugin/internal/config"
	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/player"
	"github.com/DrRago/YTSync-Plugin/internal/sched"
	"github.com/DrRago/YTSync-Plugin/internal/session"
	"github.com/DrRago/YTSync-Plugin/internal/transport"
)

func joinCmd() *cobra.Command {
	var token string
	var name string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join an existing shared session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--session is required")
			}
			return runClient(token, name)
		},
	}
	cmd.Flags().StringVar(&token, "session", "", "session token from the share URL")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func createCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new shared session and join it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := createSession(cfg.ServerURL)
			if err != nil {
				return err
			}
			fmt.Printf("session token: %s\n", token)
			return runClient(token, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func createSession(serverURL string) (string, error) {
	resp, err := http.Post(serverURL+"/api/sessions", "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create session: %s", resp.Status)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	return body.Token, nil
}

func runClient(token, name string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ch, err := transport.Dial(ctx, cfg.ServerURL, token, transport.Options{
		Name:       name,
		ReadLimit:  cfg.ReadLimit,
		SendBuffer: cfg.SendBuffer,
	})
	if err != nil {
		return err
	}
	defer ch.Close()

	engine := player.NewHeadless()
	sess := session.New(session.Options{
		Token:  token,
		SelfID: domain.SocketID(ch.SocketID()),
		Player: engine,
		Page:   engine,
		Sender: ch,
		Margin: cfg.SyncMargin,
		OnReaction: func(r string) {
			log.Info().Str("reaction", r).Msg("reaction")
		},
	})

	// Engine callbacks and pollers enter the session through Post so they
	// serialize with frame handling.
	engine.OnStateChange(func(st domain.PlayerState) {
		sess.Post(func() { sess.HandlePlayerState(st) })
	})

	seek := &sched.SeekDetector{
		Interval: cfg.SeekPollInterval,
		Player:   engine,
		OnSeek: func(pos float64) {
			sess.Post(func() { sess.Sync.HandleLocalSeek(pos) })
		},
	}
	// Remote-driven jumps reset the detector baseline so they are not
	// reported back as local seeks.
	sess.Sync.BindResync(seek.Suppress)
	go seek.Run(ctx)

	// An in-page navigation the session did not drive becomes a
	// PLAY_VIDEO request; navigations the session performed itself are
	// already selected and get skipped.
	urlPoll := &sched.Poller[string]{
		Interval: cfg.URLPollInterval,
		Observe: func() string {
			v, ok := engine.CurrentVideo()
			if !ok {
				return ""
			}
			return v.VideoID
		},
		OnChange: func(_, cur string) {
			if cur == "" {
				return
			}
			sess.Post(func() {
				if cur == sess.Queue.SelectedID() {
					return
				}
				sess.PlayVideo(cur)
			})
		},
	}
	go urlPoll.Run(ctx)

	log.Info().Str("token", token).Str("name", name).Msg("joined session")
	sess.Run(ctx, ch.Frames())
	return nil
}
