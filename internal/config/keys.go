package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "build.device", typ: kString, env: "ROMBOT_BUILD_DEVICE",
		apply:   func(cfg *Config, v any) { cfg.Build.Device = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.Device },
	},
	{
		key: "build.variant", typ: kString, env: "ROMBOT_BUILD_VARIANT",
		apply:   func(cfg *Config, v any) { cfg.Build.Variant = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.Variant },
	},
	{
		key: "build.rom_type", typ: kString, env: "ROMBOT_BUILD_ROM_TYPE",
		apply:   func(cfg *Config, v any) { cfg.Build.ROMType = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.ROMType },
	},
	{
		key: "build.official", typ: kBool, env: "ROMBOT_BUILD_OFFICIAL",
		apply:   func(cfg *Config, v any) { cfg.Build.Official = v.(bool) },
		extract: func(cfg Config) any { return cfg.Build.Official },
	},
	{
		key: "build.jobs", typ: kInt, env: "ROMBOT_BUILD_JOBS",
		apply:   func(cfg *Config, v any) { cfg.Build.Jobs = v.(int) },
		extract: func(cfg Config) any { return cfg.Build.Jobs },
	},
	{
		key: "build.power_off", typ: kBool, env: "ROMBOT_BUILD_POWER_OFF",
		apply:   func(cfg *Config, v any) { cfg.Build.PowerOff = v.(bool) },
		extract: func(cfg Config) any { return cfg.Build.PowerOff },
	},
	{
		key: "telegram.bot_token", typ: kString, env: "ROMBOT_TELEGRAM_BOT_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Telegram.BotToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Telegram.BotToken },
	},
	{
		key: "telegram.chat_id", typ: kString, env: "ROMBOT_TELEGRAM_CHAT_ID",
		apply:   func(cfg *Config, v any) { cfg.Telegram.ChatID = v.(string) },
		extract: func(cfg Config) any { return cfg.Telegram.ChatID },
	},
	{
		key: "telegram.error_chat_id", typ: kString, env: "ROMBOT_TELEGRAM_ERROR_CHAT_ID",
		apply:   func(cfg *Config, v any) { cfg.Telegram.ErrorChatID = v.(string) },
		extract: func(cfg Config) any { return cfg.Telegram.ErrorChatID },
	},
	{
		key: "telegram.pin_message", typ: kBool, env: "ROMBOT_TELEGRAM_PIN_MESSAGE",
		apply:   func(cfg *Config, v any) { cfg.Telegram.PinMessage = v.(bool) },
		extract: func(cfg Config) any { return cfg.Telegram.PinMessage },
	},
	{
		key: "upload.rclone_remote", typ: kString, env: "ROMBOT_UPLOAD_RCLONE_REMOTE",
		apply:   func(cfg *Config, v any) { cfg.Upload.RcloneRemote = v.(string) },
		extract: func(cfg Config) any { return cfg.Upload.RcloneRemote },
	},
	{
		key: "upload.rclone_folder", typ: kString, env: "ROMBOT_UPLOAD_RCLONE_FOLDER",
		apply:   func(cfg *Config, v any) { cfg.Upload.RcloneFolder = v.(string) },
		extract: func(cfg Config) any { return cfg.Upload.RcloneFolder },
	},
	{
		key: "upload.gofile_fallback", typ: kBool, env: "ROMBOT_UPLOAD_GOFILE_FALLBACK",
		apply:   func(cfg *Config, v any) { cfg.Upload.GofileFallback = v.(bool) },
		extract: func(cfg Config) any { return cfg.Upload.GofileFallback },
	},
	{
		key: "banner.enabled", typ: kBool, env: "ROMBOT_BANNER_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Banner.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Banner.Enabled },
	},
	{
		key: "banner.display_name", typ: kString, env: "ROMBOT_BANNER_DISPLAY_NAME",
		apply:   func(cfg *Config, v any) { cfg.Banner.DisplayName = v.(string) },
		extract: func(cfg Config) any { return cfg.Banner.DisplayName },
	},
	{
		key: "banner.color_scheme", typ: kString, env: "ROMBOT_BANNER_COLOR_SCHEME",
		apply:   func(cfg *Config, v any) { cfg.Banner.ColorScheme = v.(string) },
		extract: func(cfg Config) any { return cfg.Banner.ColorScheme },
	},
	{
		key: "server.port", typ: kInt, env: "ROMBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ROMBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "ROMBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
