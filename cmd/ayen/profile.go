package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/internal/appconfig"
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// openProfile opens the configured profile store without a browser.
func openProfile(cmd *cobra.Command, cfgPath string) (profile.Store, appconfig.Config, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	store, err := profile.Open(profile.Backend(cfg.Profile.Backend), cfg.Profile.Dir, profile.Options{
		HistoryMax: cfg.Profile.HistoryMax,
		Logger:     pslog.Ctx(cmd.Context()),
	})
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	return store, cfg, nil
}

func newHistoryCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect browsing history",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List history newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			items, err := store.History()
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", item.Date, item.URL, item.Title)
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum entries to print")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.ClearHistory(); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("history cleared")
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func newBookmarksCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Inspect and edit bookmarks",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			items, err := store.Bookmarks()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", item.URL, item.Title)
			}
			return nil
		},
	}

	var title string
	toggle := &cobra.Command{
		Use:   "toggle <url>",
		Short: "Add the URL as a bookmark or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return schema.ErrEmptyInput
			}
			store, _, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if strings.TrimSpace(title) == "" {
				title = url
			}
			_, bookmarked, err := store.ToggleBookmark(schema.BookmarkItem{URL: url, Title: title})
			if err != nil {
				return err
			}
			state := "removed"
			if bookmarked {
				state = "added"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, url)
			return err
		},
	}
	toggle.Flags().StringVar(&title, "title", "", "bookmark title (defaults to the URL)")

	cmd.AddCommand(list, toggle)
	return cmd
}

func newSettingsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change browser settings",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			settings, err := store.Settings()
			if err != nil {
				return err
			}
			return printSettings(cmd, settings)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one setting (searchEngine, shieldEnabled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openProfile(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			service, err := core.NewService(schema.ServiceConfig{HistoryMax: cfg.Profile.HistoryMax}, core.ServiceDeps{
				Store:  store,
				Logger: pslog.Ctx(cmd.Context()),
			})
			if err != nil {
				return err
			}
			defer func() { _ = service.Close(cmd.Context()) }()
			key := schema.SettingKey(args[0])
			settings, err := service.UpdateSetting(cmd.Context(), schema.UpdateSettingRequest{
				Key:   key,
				Value: settingValue(key, args[1]),
			})
			if err != nil {
				return err
			}
			return printSettings(cmd, settings)
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

// settingValue converts CLI text to the type the setting expects. Unparseable
// booleans stay strings so validation reports them.
func settingValue(key schema.SettingKey, raw string) any {
	if key == schema.SettingShieldEnabled {
		if value, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return value
		}
	}
	return raw
}

func printSettings(cmd *cobra.Command, settings schema.Settings) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s\t%s\n", schema.SettingSearchEngine, settings.SearchEngine)
	_, err := fmt.Fprintf(out, "%s\t%t\n", schema.SettingShieldEnabled, settings.ShieldEnabled)
	return err
}
