package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/config"
	"github.com/oriys/feedcache/internal/domain"
	"github.com/oriys/feedcache/internal/feed"
	"github.com/oriys/feedcache/internal/jsonfeed"
)

// resolveFeed returns the configured feed, or an ad-hoc one titled after its
// name when the config does not list it.
func resolveFeed(cfg *config.Config, name, title string) (config.FeedConfig, error) {
	if fc, err := cfg.Feed(name); err == nil {
		if title != "" {
			fc.Title = title
		}
		return fc, nil
	}
	if title == "" {
		title = name
	}
	cfg.Feeds[name] = config.FeedConfig{Metadata: jsonfeed.Metadata{Title: title}}
	return cfg.Feed(name)
}

func newEngine(cfg *config.Config, c cache.Cache, fc config.FeedConfig) *feed.Engine {
	return feed.New(c, fc.Key(), fc.Metadata, feed.WithBatchSize(cfg.Store.BatchSize))
}

func writeDocument(w io.Writer, doc []byte, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err != nil {
			return err
		}
		doc = buf.Bytes()
	}
	_, err := fmt.Fprintln(w, string(doc))
	return err
}

func addCmd() *cobra.Command {
	var (
		title  string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "add <feed> [file]",
		Short: "Merge submissions into a feed and print the result",
		Long:  "Reads a JSON array of submissions ({\"item\": {...}, \"expireAt\": ..., \"approximateDate\": ...}) from file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fc, err := resolveFeed(cfg, args[0], title)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			var subs []domain.Submission
			if err := json.NewDecoder(in).Decode(&subs); err != nil {
				return fmt.Errorf("decode submissions: %w", err)
			}

			ctx := cmd.Context()
			c, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			// Submissions before a rejected one are still flushed.
			eng := newEngine(cfg, c, fc)
			var rejected *feed.SubmissionError
			if err := eng.Add(ctx, subs...); err != nil && !errors.As(err, &rejected) {
				return err
			}
			doc, err := eng.Render(ctx)
			if err != nil {
				return err
			}
			if rejected != nil {
				return fmt.Errorf("%w (%d earlier submission(s) applied)", rejected, rejected.Index)
			}
			return writeDocument(cmd.OutOrStdout(), doc, pretty)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Feed title when the feed is not configured")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the printed document")

	return cmd
}

func renderCmd() *cobra.Command {
	var (
		title  string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "render <feed>",
		Short: "Print the current feed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fc, err := resolveFeed(cfg, args[0], title)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			doc, err := newEngine(cfg, c, fc).Render(ctx)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), doc, pretty)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Feed title when the feed is not configured")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the printed document")

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired entries from backends without native expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			sweeper, ok := c.(cache.Sweeper)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s backend expires entries natively; nothing to sweep\n", cfg.Store.Backend)
				return nil
			}
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", removed)
			return nil
		},
	}
}
