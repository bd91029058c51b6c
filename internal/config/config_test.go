package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefaults(t *testing.T) {
	cfg := resolve()

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "gemini-2.5-flash-preview-tts", cfg.TTS.Model)
	assert.Equal(t, "Orus", cfg.TTS.VoiceMale)
	assert.Equal(t, "Kore", cfg.TTS.VoiceFemale)
	assert.Equal(t, "de-DE", cfg.TTS.Language)
	assert.Equal(t, "parakeet", cfg.ASR.Method)
	assert.Equal(t, 80, cfg.App.MaxSplitLength)
	assert.Equal(t, "de", cfg.App.SourceLanguage)
	assert.False(t, cfg.App.UseLLM)
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv("LLM_MODEL", "anthropic/claude-sonnet")
	t.Setenv("APP_MAX_SPLIT_LENGTH", "42")
	t.Setenv("APP_USE_LLM", "true")
	t.Setenv("ASR_ENABLE_DEMUCS", "1")

	cfg := resolve()

	assert.Equal(t, "anthropic/claude-sonnet", cfg.LLM.Model)
	assert.Equal(t, 42, cfg.App.MaxSplitLength)
	assert.True(t, cfg.App.UseLLM)
	assert.True(t, cfg.ASR.EnableDemucs)
}

func TestResolveIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("APP_MAX_SPLIT_LENGTH", "not-a-number")
	cfg := resolve()
	assert.Equal(t, 80, cfg.App.MaxSplitLength)

	t.Setenv("APP_MAX_SPLIT_LENGTH", "-5")
	cfg = resolve()
	assert.Equal(t, 80, cfg.App.MaxSplitLength)
}

func TestReloadPicksUpChanges(t *testing.T) {
	t.Setenv("APP_SOURCE_LANGUAGE", "de")
	first := Reload()
	assert.Equal(t, "de", first.App.SourceLanguage)

	t.Setenv("APP_SOURCE_LANGUAGE", "en")
	assert.Equal(t, "de", Load().App.SourceLanguage) // cached
	assert.Equal(t, "en", Reload().App.SourceLanguage)
}
