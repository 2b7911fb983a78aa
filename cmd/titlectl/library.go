package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"titletrack/internal/auth"
	"titletrack/internal/library"
	"titletrack/internal/refresh"
	"titletrack/internal/scraper"
	"titletrack/pkg/database"
)

func openDB() (*sql.DB, error) {
	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg = database.ConfigFor(cfg.DBPath)
	}
	return database.OpenAndMigrate(dbCfg)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-resolve one stored title and raise its total if the source has more",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		id, _ := cmd.Flags().GetString("id")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := library.NewRepo(db)
		svc := refresh.NewService(repo, scraper.NewDefaultResolver(cfg.Sources, nil), nil, cfg.Refresh.Timeout())
		svc.Refresh(cmd.Context(), userID, id)

		rec, err := repo.Get(cmd.Context(), userID, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("title %s not found for user %s", id, userID)
		}
		return printJSON(rec)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Refresh every stored title that has a source URL, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := library.NewRepo(db)
		svc := refresh.NewService(repo, scraper.NewDefaultResolver(cfg.Sources, nil), nil, cfg.Refresh.Timeout())
		n, err := refresh.NewScheduler(repo, svc, 0, cfg.Refresh.Concurrency).Sweep(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int("visited", n).Msg("sweep done")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tokens := auth.TokenService{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.JWTIssuer, Duration: ttl}
		raw, exp, err := tokens.Sign(userID, name)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"token": raw, "expires_at": exp})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a user's titles as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		out, _ := cmd.Flags().GetString("out")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		w := os.Stdout
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := library.NewRepo(db).ExportCSV(cmd.Context(), userID, w)
		if err != nil {
			return err
		}
		log.Info().Int("titles", n).Str("user", userID).Msg("exported")
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Add or update a user's titles from CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		in, _ := cmd.Flags().GetString("in")

		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		imported, skipped, err := library.NewRepo(db).ImportCSV(cmd.Context(), userID, f)
		if err != nil {
			return err
		}
		log.Info().Int("imported", imported).Int("skipped", skipped).Str("user", userID).Msg("imported")
		return nil
	},
}

func init() {
	refreshCmd.Flags().String("user", "", "owner user id")
	refreshCmd.Flags().String("id", "", "title id")
	_ = refreshCmd.MarkFlagRequired("user")
	_ = refreshCmd.MarkFlagRequired("id")

	tokenCmd.Flags().String("user", "", "user id to put in the token")
	tokenCmd.Flags().String("name", "", "optional username claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	exportCmd.Flags().String("user", "", "owner user id")
	exportCmd.Flags().String("out", "-", "output path, - for stdout")
	_ = exportCmd.MarkFlagRequired("user")

	importCmd.Flags().String("user", "", "owner user id")
	importCmd.Flags().String("in", "", "input CSV path")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("in")
}
