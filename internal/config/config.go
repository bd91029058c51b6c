package config

import (
	"os"
	"strconv"
	"sync"
)

// LLMConfig holds chat-completion API settings.
type LLMConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TTSConfig holds speech-synthesis API settings.
type TTSConfig struct {
	APIKey      string `json:"api_key,omitempty"`
	Model       string `json:"model,omitempty"`
	VoiceMale   string `json:"voice_male"`
	VoiceFemale string `json:"voice_female"`
	Speed       string `json:"speed"`
	Tone        string `json:"tone"`
	Language    string `json:"language"`
}

// ASRConfig holds recognizer settings.
type ASRConfig struct {
	Method           string `json:"method"`
	ParakeetModelDir string `json:"parakeet_model_dir"`
	EnableDemucs     bool   `json:"enable_demucs"`
	EnableVAD        bool   `json:"enable_vad"`
}

// AppConfig holds segmentation settings.
type AppConfig struct {
	MaxSplitLength int    `json:"max_split_length"`
	UseLLM         bool   `json:"use_llm"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	AnnotatorURL   string `json:"annotator_url"`
}

// Config is the resolved process configuration.
type Config struct {
	LLM LLMConfig `json:"llm"`
	TTS TTSConfig `json:"tts"`
	ASR ASRConfig `json:"asr"`
	App AppConfig `json:"app"`
}

var (
	mu     sync.Mutex
	cached *Config
)

// Load returns the process-wide configuration, resolving it from the
// environment on first call. Subsequent calls return the cached value.
func Load() *Config {
	mu.Lock()
	defer mu.Unlock()
	if cached == nil {
		cached = resolve()
	}
	return cached
}

// Reload discards the cached configuration and resolves it again.
func Reload() *Config {
	mu.Lock()
	defer mu.Unlock()
	cached = resolve()
	return cached
}

func resolve() *Config {
	return &Config{
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			BaseURL: envOr("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   envOr("LLM_MODEL", "openai/gpt-4o"),
		},
		TTS: TTSConfig{
			APIKey:      os.Getenv("TTS_API_KEY"),
			Model:       envOr("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			VoiceMale:   envOr("TTS_VOICE_MALE", "Orus"),
			VoiceFemale: envOr("TTS_VOICE_FEMALE", "Kore"),
			Speed:       envOr("TTS_SPEED", "Native conversational pace"),
			Tone:        envOr("TTS_TONE", "Clear, educational, engaging"),
			Language:    envOr("TTS_LANGUAGE", "de-DE"),
		},
		ASR: ASRConfig{
			Method:           envOr("ASR_METHOD", "parakeet"),
			ParakeetModelDir: envOr("ASR_PARAKEET_MODEL_DIR", "models/sherpa-onnx-nemo-parakeet-tdt-0.6b-v3-int8"),
			EnableDemucs:     envBool("ASR_ENABLE_DEMUCS", false),
			EnableVAD:        envBool("ASR_ENABLE_VAD", false),
		},
		App: AppConfig{
			MaxSplitLength: envInt("APP_MAX_SPLIT_LENGTH", 80),
			UseLLM:         envBool("APP_USE_LLM", false),
			SourceLanguage: envOr("APP_SOURCE_LANGUAGE", "de"),
			TargetLanguage: envOr("APP_TARGET_LANGUAGE", "de"),
			AnnotatorURL:   envOr("NLP_ANNOTATOR_URL", "http://127.0.0.1:8090"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
