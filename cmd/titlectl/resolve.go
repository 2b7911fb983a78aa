package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"titletrack/internal/scraper"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a title page URL to its title, cover, count and type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Sources.Timeout())
		defer cancel()

		info, err := scraper.NewDefaultResolver(cfg.Sources, nil).Resolve(ctx, args[0])
		if err != nil {
			return errors.New(scraper.UserMessage(err))
		}
		return printJSON(info)
	},
}

var topCmd = &cobra.Command{
	Use:       "top [ANIME|MANGA|MANHWA]",
	Short:     "Show trending titles, for one category or all three",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"ANIME", "MANGA", "MANHWA"},
	RunE: func(cmd *cobra.Command, args []string) error {
		al := scraper.NewDefaultResolver(cfg.Sources, nil).Discovery()
		if al == nil {
			return fmt.Errorf("discovery source not configured")
		}
		if len(args) == 0 {
			all, err := al.TopAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(all)
		}
		items, err := al.Top(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(items)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search anime and manga by title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		al := scraper.NewDefaultResolver(cfg.Sources, nil).Discovery()
		if al == nil {
			return fmt.Errorf("discovery source not configured")
		}
		items, err := al.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(items)
	},
}
