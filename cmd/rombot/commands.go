package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kessoku/rombot/internal/api"
	"github.com/kessoku/rombot/internal/config"
	"github.com/kessoku/rombot/internal/storage"
	"github.com/kessoku/rombot/internal/telegram"
	"github.com/kessoku/rombot/internal/uploader"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running build",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		url := fmt.Sprintf("http://127.0.0.1:%d/status", cfg.Server.Port)
		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			printWarning("No build is running (cannot reach %s)", url)
			return nil
		}
		defer resp.Body.Close()

		var snap api.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("decoding status: %w", err)
		}

		printStatus("Stage", "%s", snap.Stage)
		if snap.Device != "" {
			printStatus("Device", "%s", snap.Device)
		}
		if snap.ROMName != "" {
			printStatus("ROM", "%s", snap.ROMName)
		}
		if snap.Progress != "" {
			printStatus("Progress", "%s", snap.Progress)
		}
		if snap.ElapsedSeconds > 0 {
			printStatus("Elapsed", "%s", (time.Duration(snap.ElapsedSeconds) * time.Second).String())
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past builds",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		builds, err := store.ListRecent(limit)
		if err != nil {
			return err
		}
		if len(builds) == 0 {
			fmt.Println("No builds recorded.")
			return nil
		}

		for _, b := range builds {
			status := b.Status
			switch b.Status {
			case storage.StatusSuccess:
				status = colorize(colorGreen, b.Status)
			case storage.StatusFailed:
				status = colorize(colorRed, b.Status)
			case storage.StatusInterrupted:
				status = colorize(colorYellow, b.Status)
			}
			fmt.Printf("%s  %s  %-11s  %s %s (%s)\n",
				colorize(colorCyan, shortID(b.ID)),
				b.StartedAt.Local().Format("2006-01-02 15:04"),
				status,
				b.ROMName,
				b.Device,
				b.Variant,
			)
		}
		return nil
	},
}

// shortID abbreviates a build id for the list view. IDs are normally
// UUIDs, but rows edited by hand may carry anything.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one build as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		b, err := store.GetBuild(args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of builds to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- notify ---

var notifyCmd = &cobra.Command{
	Use:   "notify <message>",
	Short: "Send a message to the configured Telegram chat",
	Long: `Send a message to the configured Telegram chat.

The message is sent with HTML parse mode, so <b>, <i> and <code> tags
work. Useful for scripting around builds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.ValidateForNotify(cfg); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client := telegram.New(cfg.Telegram.BotToken)
		if _, err := client.SendMessage(ctx, cfg.Telegram.ChatID, args[0]); err != nil {
			return err
		}

		printSuccess("Message sent")
		return nil
	},
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file and print its download link",
	Long: `Upload a file and print its download link.

Tries the configured rclone remote first and falls back to GoFile, the
same chain a build uses for its artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		chain := uploader.NewChain(
			uploader.NewRclone(cfg.Upload.RcloneRemote, cfg.Upload.RcloneFolder),
			uploader.NewGofile(cfg.Upload.GofileFallback),
		)

		printStep("Uploading %s...", path)
		url, err := chain.Upload(cmd.Context(), path)
		if err != nil {
			return err
		}

		fmt.Println(url)
		return nil
	},
}
