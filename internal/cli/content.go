package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"totem-quiz-bot/internal/config"
	"totem-quiz-bot/internal/content"
	"totem-quiz-bot/internal/domain"
	"totem-quiz-bot/internal/infra/postgres"
)

// NewCheckContentCmd validates the configured content and reports answer
// weights that reference animals missing from the catalog.
func NewCheckContentCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-content",
		Short: "Validate questions and animal catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			var pgPool *pgxpool.Pool
			if cfg.Content.Source == "postgres" {
				pgPool, err = pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pgPool.Close()
			}
			store, err := loadContent(cmd.Context(), cfg, pgPool)
			if err != nil {
				return err
			}
			return reportContent(cmd.OutOrStdout(), store)
		},
	}
}

func reportContent(w io.Writer, store *content.Store) error {
	dangling := content.CrossCheck(store)
	fmt.Fprintf(w, "%d questions, %d animals\n", store.TotalQuestions(), len(store.AnimalKeys()))
	for _, d := range dangling {
		fmt.Fprintln(w, d.String())
	}
	if len(dangling) > 0 {
		return fmt.Errorf("%d answer weights reference unknown animals", len(dangling))
	}
	fmt.Fprintln(w, "ok")
	return nil
}

// NewImportContentCmd copies the JSON content files into the quiz_content
// table so the bot can run with content.source=postgres.
func NewImportContentCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-content",
		Short: "Load questions.json and animals.json into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			logger, closer := newLogger(cfg)
			defer closer.Close()

			pgPool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pgPool.Close()

			if err := ImportContent(cmd.Context(), postgres.NewContentSource(pgPool), cfg.Content.QuestionsPath, cfg.Content.AnimalsPath); err != nil {
				return err
			}
			logger.Info().Msg("content imported")
			return nil
		},
	}
}

// ImportContent validates both files by loading them, then publishes them.
func ImportContent(ctx context.Context, dst *postgres.ContentSource, questionsPath, animalsPath string) error {
	if _, err := content.Initialize(ctx, content.NewFileSource(questionsPath, animalsPath)); err != nil {
		return err
	}
	for name, path := range map[string]string{
		postgres.QuestionsDocument: questionsPath,
		postgres.AnimalsDocument:   animalsPath,
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !json.Valid(data) {
			return fmt.Errorf("%w: %s is not valid JSON", domain.ErrDataLoad, path)
		}
		if err := dst.Publish(ctx, name, data); err != nil {
			return err
		}
	}
	return nil
}
