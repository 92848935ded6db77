package config

import (
	"fmt"
)

type Config struct {
	Build    BuildConfig
	Telegram TelegramConfig
	Upload   UploadConfig
	Banner   BannerConfig
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
}

type BuildConfig struct {
	Device   string
	Variant  string
	ROMType  string // "" for standard brunch, or "axion-pico", "axion-core", "axion-vanilla"
	Official bool
	Jobs     int
	PowerOff bool
}

type TelegramConfig struct {
	BotToken    string
	ChatID      string
	ErrorChatID string
	PinMessage  bool
}

type UploadConfig struct {
	RcloneRemote   string
	RcloneFolder   string
	GofileFallback bool
}

type BannerConfig struct {
	Enabled     bool
	DisplayName string
	ColorScheme string
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Build: BuildConfig{
			Variant: "userdebug",
		},
		Upload: UploadConfig{
			GofileFallback: true,
		},
		Banner: BannerConfig{
			Enabled:     true,
			ColorScheme: "default",
		},
		Server: ServerConfig{
			Port: 4870,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/rombot/config.json, then applies ROMBOT_* environment
// variable overrides. Secrets (the bot token) are never written to the file
// backend and must come from the environment.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// ValidateForBuild checks the fields the build driver cannot run without.
func ValidateForBuild(cfg Config) error {
	if cfg.Build.Device == "" {
		return fmt.Errorf("missing required config: build.device (set it via `rombot config set build.device <codename>` or ROMBOT_BUILD_DEVICE)")
	}
	if cfg.Build.Variant == "" {
		return fmt.Errorf("missing required config: build.variant (eng, userdebug or user)")
	}
	return validateTelegram(cfg)
}

// ValidateForNotify checks the fields any Telegram-sending command needs.
func ValidateForNotify(cfg Config) error {
	return validateTelegram(cfg)
}

func validateTelegram(cfg Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing required config: Telegram bot token. Set it via environment variable ROMBOT_TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == "" {
		return fmt.Errorf("missing required config: telegram.chat_id")
	}
	return nil
}
