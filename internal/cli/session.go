package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"blum-bot/internal/config"
	"blum-bot/internal/telegram"
)

func newSessionCmd(configPath *string) *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Manage Telegram session files",
	}
	session.AddCommand(newSessionCreateCmd(configPath))
	return session
}

func newSessionCreateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Interactively authorize a new session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			name := args[0]

			if err := os.MkdirAll(cfg.Telegram.SessionDir, 0o700); err != nil {
				return fmt.Errorf("create session dir: %w", err)
			}
			path := filepath.Join(cfg.Telegram.SessionDir, name+".session")

			chat := telegram.NewClient(telegram.Options{
				APIID:       cfg.Telegram.APIID,
				APIHash:     cfg.Telegram.APIHash,
				SessionPath: path,
				Logger:      log.With().Str("session", name).Logger(),
			})
			if err := chat.CreateSession(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("session file ready")
			return nil
		},
	}
}
