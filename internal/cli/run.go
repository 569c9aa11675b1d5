package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"blum-bot/internal/blum"
	"blum-bot/internal/config"
	"blum-bot/internal/miner"
	"blum-bot/internal/telegram"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the farming loop for every session file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runAccounts(cmd.Context(), cfg)
		},
	}
}

// runAccounts fans out one independent worker per session file. Workers do
// not share state and a failed worker only takes down its own account: the
// error is logged and the rest keep running.
func runAccounts(ctx context.Context, cfg *config.Config) error {
	sessions, err := sessionNames(cfg.Telegram.SessionDir)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no session files in %s, create one with `blum-bot session create`", cfg.Telegram.SessionDir)
	}

	var proxies []string
	if cfg.Proxy.Enabled {
		proxies, err = readLines(cfg.Proxy.File)
		if err != nil {
			return fmt.Errorf("load proxy list: %w", err)
		}
	}
	log.Info().Int("sessions", len(sessions)).Int("proxies", len(proxies)).Msg("starting accounts")

	var wg sync.WaitGroup
	for i, name := range sessions {
		proxyURL := ""
		if len(proxies) > 0 {
			proxyURL = proxies[i%len(proxies)]
		}

		wg.Add(1)
		go func(name, proxyURL string) {
			defer wg.Done()
			if err := runAccount(ctx, cfg, name, proxyURL); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("session", name).Msg("account stopped")
			}
		}(name, proxyURL)
	}
	wg.Wait()
	return nil
}

// runAccount assembles the collaborators for one account and runs its loop.
func runAccount(ctx context.Context, cfg *config.Config, name, proxyURL string) error {
	logger := log.With().Str("session", name).Logger()

	chat := telegram.NewClient(telegram.Options{
		APIID:       cfg.Telegram.APIID,
		APIHash:     cfg.Telegram.APIHash,
		SessionPath: filepath.Join(cfg.Telegram.SessionDir, name+".session"),
		Proxy:       proxyURL,
		Logger:      logger,
	})

	api, err := blum.NewClient(chat, blum.Options{
		GatewayURL:    cfg.API.GatewayURL,
		GameURL:       cfg.API.GameURL,
		Proxy:         proxyURL,
		Timeout:       cfg.API.Timeout,
		GamePointsMin: cfg.Games.PointsMin,
		GamePointsMax: cfg.Games.PointsMax,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	m := miner.New(api, chat, miner.Options{
		Referrals: cfg.Referral.Codes,
		PlayGames: cfg.Games.Play,
		Logger:    logger,
	})
	return m.Run(ctx)
}

// sessionNames lists the account names of every *.session file in dir.
func sessionNames(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.session"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".session"))
	}
	return names, nil
}

// readLines returns the non-empty, non-comment lines of a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
