package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kessoku/rombot/internal/api"
	"github.com/kessoku/rombot/internal/banner"
	"github.com/kessoku/rombot/internal/builder"
	"github.com/kessoku/rombot/internal/config"
	"github.com/kessoku/rombot/internal/notify"
	"github.com/kessoku/rombot/internal/power"
	"github.com/kessoku/rombot/internal/storage"
	"github.com/kessoku/rombot/internal/telegram"
	"github.com/kessoku/rombot/internal/uploader"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run a ROM build and report progress to Telegram",
	Long: `Run a ROM build and report progress to Telegram.

The build runs inside the ROM source tree (the current directory unless
--root is given). Progress is read from build.log and mirrored into a
single Telegram message that gets edited as the build advances.

Examples:
  rombot build --device begonia
  rombot build --device begonia --rom-type axion-pico --sync
  rombot build --device begonia --clean --power-off`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Flags override config so one-off builds don't need config edits.
		if v, _ := cmd.Flags().GetString("device"); v != "" {
			cfg.Build.Device = v
		}
		if v, _ := cmd.Flags().GetString("variant"); v != "" {
			cfg.Build.Variant = v
		}
		if v, _ := cmd.Flags().GetString("rom-type"); v != "" {
			cfg.Build.ROMType = v
		}
		if v, _ := cmd.Flags().GetInt("jobs"); v > 0 {
			cfg.Build.Jobs = v
		}
		if v, _ := cmd.Flags().GetBool("power-off"); v {
			cfg.Build.PowerOff = true
		}

		if err := config.ValidateForBuild(cfg); err != nil {
			return err
		}

		rootDir, _ := cmd.Flags().GetString("root")
		if rootDir == "" {
			if rootDir, err = os.Getwd(); err != nil {
				return err
			}
		}

		doSync, _ := cmd.Flags().GetBool("sync")
		doClean, _ := cmd.Flags().GetBool("clean")
		doInstallclean, _ := cmd.Flags().GetBool("installclean")

		setupLogging(cfg.Log.Level)
		return runBuild(cfg, rootDir, doSync, doClean, doInstallclean)
	},
}

func init() {
	buildCmd.Flags().String("device", "", "device codename to build for")
	buildCmd.Flags().String("variant", "", "build variant (eng, userdebug, user)")
	buildCmd.Flags().String("rom-type", "", "ROM flavor (axion-pico, axion-core, axion-vanilla)")
	buildCmd.Flags().Int("jobs", 0, "parallel build jobs (0 lets the build system decide)")
	buildCmd.Flags().String("root", "", "ROM source tree root (default: current directory)")
	buildCmd.Flags().Bool("sync", false, "repo sync before building")
	buildCmd.Flags().Bool("clean", false, "remove the out directory before building")
	buildCmd.Flags().Bool("installclean", false, "run installclean before building")
	buildCmd.Flags().Bool("power-off", false, "power the machine off after the build")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runBuild(cfg config.Config, rootDir string, doSync, doClean, doInstallclean bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Compose the build command first so a bad flavor fails before
	// anything is announced.
	command, err := builder.Command(builder.Options{
		Device:  cfg.Build.Device,
		Variant: cfg.Build.Variant,
		ROMType: cfg.Build.ROMType,
		Jobs:    cfg.Build.Jobs,
	})
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	printStep("Inspecting source tree...")
	manifest := builder.DetectManifest(ctx, rootDir)
	romName := cfg.Banner.DisplayName
	if romName == "" {
		romName = manifest.ROMName
	}
	if romName == "" {
		romName = "ROM"
	}
	printStatus("ROM", "%s", romName)
	printStatus("Device", "%s", cfg.Build.Device)
	if manifest.AndroidVersion != "" {
		printStatus("Android", "%s", manifest.AndroidVersion)
	}

	buildID := uuid.NewString()
	record := storage.BuildRecord{
		ID:             buildID,
		Device:         cfg.Build.Device,
		Variant:        cfg.Build.Variant,
		ROMType:        cfg.Build.ROMType,
		ROMName:        romName,
		AndroidVersion: manifest.AndroidVersion,
		Official:       cfg.Build.Official,
		StartedAt:      time.Now(),
	}
	if err := store.StartBuild(record); err != nil {
		return fmt.Errorf("recording build: %w", err)
	}

	tracker := api.NewTracker()
	tracker.Begin(buildID, cfg.Build.Device, cfg.Build.Variant, romName, manifest.AndroidVersion)
	stopServer := startStatusServer(tracker, cfg.Server.Port)
	defer stopServer()

	notifier := notify.New(
		telegram.New(cfg.Telegram.BotToken),
		cfg.Telegram.ChatID,
		cfg.Telegram.ErrorChatID,
		cfg.Telegram.PinMessage,
		notify.Build{
			ROMName:        romName,
			Device:         cfg.Build.Device,
			AndroidVersion: manifest.AndroidVersion,
			Variant:        cfg.Build.Variant,
			Official:       cfg.Build.Official,
		},
	)

	runner := builder.NewRunner(rootDir)
	runner.CleanStaleFiles()

	var bannerPath string
	if cfg.Banner.Enabled {
		printStep("Generating build banner...")
		gen := banner.New(rootDir, cfg.Banner.ColorScheme)
		defer gen.Cleanup()
		bannerPath, err = gen.Generate(ctx, banner.Info{
			ROMName:        romName,
			Device:         cfg.Build.Device,
			AndroidVersion: manifest.AndroidVersion,
			AvatarURL:      manifest.AvatarURL,
		})
		if err != nil {
			slog.Warn("banner generation failed, using text message", "error", err)
		}
	}

	if err := notifier.Announce(ctx, bannerPath); err != nil {
		return err
	}

	if doSync {
		printStep("Syncing sources...")
		if err := notifier.Syncing(ctx); err != nil {
			slog.Warn("updating sync status", "error", err)
		}
		if err := runSync(ctx, rootDir); err != nil {
			if ctx.Err() != nil {
				return finishInterrupted(ctx, notifier, store, tracker, record)
			}
			slog.Warn("repo sync failed, building with current sources", "error", err)
		}
	}

	if doClean {
		printStep("Cleaning out directory...")
		if err := os.RemoveAll(filepath.Join(rootDir, "out")); err != nil {
			slog.Warn("cleaning out directory", "error", err)
		}
	} else if doInstallclean {
		printStep("Running installclean...")
		if err := runner.RunSetupStep(ctx, "m installclean"); err != nil {
			slog.Warn("installclean failed", "error", err)
		}
	}

	printStep("Starting build...")
	watchCtx, stopWatch := context.WithCancel(ctx)
	watcher := builder.NewWatcher(runner.LogPath, os.Stdout)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watcher.Watch(watchCtx, func(p builder.Progress) {
			status := p.String()
			tracker.Update(string(p.Stage), status, p.Percent)
			if err := store.UpdateProgress(buildID, status); err != nil {
				slog.Warn("recording progress", "error", err)
			}
			if err := notifier.Progress(context.Background(), status); err != nil {
				slog.Warn("updating progress message", "error", err)
			}
		})
	}()

	res, err := runner.Run(ctx, command)
	stopWatch()
	<-watchDone
	if err != nil {
		finalizeFailed(store, tracker, record, err.Error())
		return err
	}

	record.Duration = res.Duration
	record.Progress = builder.ReadProgress(runner.LogPath).String()

	if res.Interrupted {
		return finishInterrupted(ctx, notifier, store, tracker, record)
	}

	if reason := runner.CheckFailure(res); reason != "" {
		printError("Build failed: %s", reason)
		finalizeFailed(store, tracker, record, reason)

		// Post-build messaging uses a fresh context: the build context
		// may already be cancelled.
		finCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := notifier.Failure(finCtx, record.Progress, res.Duration); err != nil {
			slog.Warn("updating failure message", "error", err)
		}
		notifier.SendLogs(finCtx, runner.ErrorLogPath(), runner.LogPath)
		return fmt.Errorf("build failed: %s", reason)
	}

	printSuccess("Build succeeded in %s", res.Duration.Round(time.Second))
	return finishSuccess(cfg, rootDir, runner, notifier, store, tracker, record)
}

func finishSuccess(cfg config.Config, rootDir string, runner *builder.Runner, notifier *notify.Notifier, store *storage.Store, tracker *api.Tracker, record storage.BuildRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Minute)
	defer cancel()

	outDir := builder.OutDir(rootDir, record.Device)
	zipPath, err := builder.FindROMZip(outDir, builder.MinROMSize)
	if err != nil {
		finalizeFailed(store, tracker, record, "rom zip not found")
		return fmt.Errorf("locating ROM zip in %s: %w", outDir, err)
	}
	printStep("Found ROM: %s", filepath.Base(zipPath))

	printStep("Calculating checksums...")
	artifact, err := builder.DescribeArtifact(zipPath)
	if err != nil {
		finalizeFailed(store, tracker, record, "checksum failed: "+err.Error())
		return fmt.Errorf("describing %s: %w", zipPath, err)
	}

	chain := uploader.NewChain(
		uploader.NewRclone(cfg.Upload.RcloneRemote, cfg.Upload.RcloneFolder),
		uploader.NewGofile(cfg.Upload.GofileFallback),
	)

	tracker.Update("uploading", "Uploading ROM zip...", 100)
	if err := notifier.Uploading(ctx, "Uploading ROM zip..."); err != nil {
		slog.Warn("updating upload status", "error", err)
	}

	printStep("Uploading ROM...")
	romURL, err := chain.Upload(ctx, artifact.Path)
	if err != nil {
		slog.Warn("upload failed, files stay local", "error", err)
		romURL = ""
	}

	var bootLinks []notify.BootLink
	if romURL != "" {
		if images := builder.BootImages(outDir); len(images) > 0 {
			if err := notifier.Uploading(ctx, "Uploading boot images..."); err != nil {
				slog.Warn("updating upload status", "error", err)
			}
			for _, img := range images {
				printStep("Uploading %s...", filepath.Base(img))
				url, err := chain.Upload(ctx, img)
				if err != nil {
					slog.Warn("uploading boot image", "image", filepath.Base(img), "error", err)
					continue
				}
				bootLinks = append(bootLinks, notify.BootLink{Name: filepath.Base(img), URL: url})
			}
		}
	}

	report := notify.Report{
		Duration:     record.Duration,
		TotalActions: builder.TotalActions(runner.LogPath),
		FileName:     artifact.Name,
		SizeHuman:    builder.HumanSize(artifact.Size),
		SHA256:       artifact.SHA256,
		MD5:          artifact.MD5,
		ROMURL:       romURL,
		BootLinks:    bootLinks,
	}
	if err := notifier.Success(ctx, report); err != nil {
		slog.Warn("updating result message", "error", err)
	}
	notifier.SendBuildLog(ctx, runner.LogPath)

	record.Status = storage.StatusSuccess
	record.ArtifactName = artifact.Name
	record.ArtifactSize = artifact.Size
	record.ArtifactSHA256 = artifact.SHA256
	record.DownloadURL = romURL
	if err := store.FinishBuild(record); err != nil {
		slog.Warn("recording build result", "error", err)
	}
	tracker.Finish("success")

	printSuccess("Done!")

	if cfg.Build.PowerOff {
		printStep("Powering off...")
		if err := power.New().Off(ctx); err != nil {
			printError("Poweroff failed: %v", err)
		}
	}
	return nil
}

// finalizeFailed closes out the history row and the status tracker for a
// failed build. Every exit path must end up here or in one of the other
// finish helpers so no record is left marked running.
func finalizeFailed(store *storage.Store, tracker *api.Tracker, record storage.BuildRecord, reason string) {
	tracker.Finish("failed")
	record.Status = storage.StatusFailed
	record.ErrorSummary = reason
	if err := store.FinishBuild(record); err != nil {
		slog.Warn("recording build result", "error", err)
	}
}

func finishInterrupted(ctx context.Context, notifier *notify.Notifier, store *storage.Store, tracker *api.Tracker, record storage.BuildRecord) error {
	tracker.Finish("interrupted")

	// The signal context is cancelled; use a short fresh one for the
	// final message.
	finCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifier.Interrupted(finCtx); err != nil {
		slog.Warn("updating interrupt message", "error", err)
	}

	record.Status = storage.StatusInterrupted
	if err := store.FinishBuild(record); err != nil {
		slog.Warn("recording build result", "error", err)
	}
	return errInterrupted
}

// runSync runs repo sync with output going straight to the console.
func runSync(ctx context.Context, rootDir string) error {
	args := builder.SyncCommand()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// startStatusServer serves /health and /status on localhost and returns
// a function that shuts it down.
func startStatusServer(tracker *api.Tracker, port int) func() {
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: api.NewHandler(tracker, version),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("status server stopped", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}
