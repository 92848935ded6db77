package config

import (
	"strings"
	"testing"
)

// memBackend is an in-memory Backend for tests.
type memBackend struct {
	data map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, nil
	}
	return s, true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, true, nil
	}
	return i, true, nil
}

func (b *memBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *memBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *memBackend) Delete(key string) error          { delete(b.data, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		if s.env != "" {
			t.Setenv(s.env, "")
		}
	}
}

// TestDefaults verifies default values when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Build.Variant != "userdebug" {
		t.Errorf("Build.Variant = %q, want %q", cfg.Build.Variant, "userdebug")
	}
	if cfg.Server.Port != 4870 {
		t.Errorf("Server.Port = %d, want 4870", cfg.Server.Port)
	}
	if !cfg.Upload.GofileFallback {
		t.Error("Upload.GofileFallback = false, want true")
	}
	if !cfg.Banner.Enabled {
		t.Error("Banner.Enabled = false, want true")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

// TestBackendValues verifies values read from the backend are applied.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.SetString("build.device", "begonia")
	b.SetString("build.rom_type", "axion-pico")
	b.SetString("build.official", "true")
	b.SetInt("build.jobs", 12)
	b.SetString("telegram.chat_id", "-100123")
	b.SetInt("server.port", 5870)

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Build.Device != "begonia" {
		t.Errorf("Build.Device = %q, want %q", cfg.Build.Device, "begonia")
	}
	if cfg.Build.ROMType != "axion-pico" {
		t.Errorf("Build.ROMType = %q, want %q", cfg.Build.ROMType, "axion-pico")
	}
	if !cfg.Build.Official {
		t.Error("Build.Official = false, want true")
	}
	if cfg.Build.Jobs != 12 {
		t.Errorf("Build.Jobs = %d, want 12", cfg.Build.Jobs)
	}
	if cfg.Telegram.ChatID != "-100123" {
		t.Errorf("Telegram.ChatID = %q, want %q", cfg.Telegram.ChatID, "-100123")
	}
	if cfg.Server.Port != 5870 {
		t.Errorf("Server.Port = %d, want 5870", cfg.Server.Port)
	}
}

// TestEnvOverride verifies ROMBOT_* env vars beat backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.SetString("build.device", "begonia")

	t.Setenv("ROMBOT_BUILD_DEVICE", "lunaa")
	t.Setenv("ROMBOT_BUILD_JOBS", "8")
	t.Setenv("ROMBOT_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ROMBOT_BUILD_POWER_OFF", "true")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Build.Device != "lunaa" {
		t.Errorf("Build.Device = %q, want env override %q", cfg.Build.Device, "lunaa")
	}
	if cfg.Build.Jobs != 8 {
		t.Errorf("Build.Jobs = %d, want 8", cfg.Build.Jobs)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("Telegram.BotToken = %q, want %q", cfg.Telegram.BotToken, "123:abc")
	}
	if !cfg.Build.PowerOff {
		t.Error("Build.PowerOff = false, want true")
	}
}

// TestValidateForBuild verifies the required-field checks and their messages.
func TestValidateForBuild(t *testing.T) {
	base := defaults()
	base.Build.Device = "begonia"
	base.Telegram.BotToken = "123:abc"
	base.Telegram.ChatID = "-100123"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"complete", func(c *Config) {}, ""},
		{"missing device", func(c *Config) { c.Build.Device = "" }, "build.device"},
		{"missing variant", func(c *Config) { c.Build.Variant = "" }, "build.variant"},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, "ROMBOT_TELEGRAM_BOT_TOKEN"},
		{"missing chat id", func(c *Config) { c.Telegram.ChatID = "" }, "telegram.chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := ValidateForBuild(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateForBuild: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// TestSetKey verifies type checking and the secret guard.
func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyOn(b, "build.device", "begonia"); err != nil {
		t.Fatalf("setKeyOn(build.device): %v", err)
	}
	if v, _, _ := b.GetString("build.device"); v != "begonia" {
		t.Errorf("build.device = %q, want %q", v, "begonia")
	}

	if err := setKeyOn(b, "build.jobs", "notanumber"); err == nil {
		t.Error("expected error for non-integer build.jobs")
	}
	if err := setKeyOn(b, "build.power_off", "maybe"); err == nil {
		t.Error("expected error for non-boolean build.power_off")
	}
	if err := setKeyOn(b, "telegram.bot_token", "123:abc"); err == nil {
		t.Error("expected error when setting a secret key")
	}
	if err := setKeyOn(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

// TestValidKeysCoverSpecs verifies every non-secret spec is listed.
func TestValidKeysCoverSpecs(t *testing.T) {
	keys := ValidKeys()

	want := 0
	for _, s := range specs {
		if !s.secret {
			want++
		}
	}
	if len(keys) != want {
		t.Errorf("ValidKeys returned %d keys, want %d", len(keys), want)
	}
	for _, k := range keys {
		if k == "telegram.bot_token" {
			t.Error("ValidKeys must not include secret keys")
		}
	}
}
