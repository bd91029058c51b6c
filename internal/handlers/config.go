package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"echolot/internal/config"
	"echolot/internal/llm"
	"echolot/internal/tts"
)

// ConfigHandler serves the configuration endpoints.
type ConfigHandler struct{}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler() *ConfigHandler {
	return &ConfigHandler{}
}

// Get returns the resolved configuration with credentials masked.
// GET /api/config
func (h *ConfigHandler) Get(c echo.Context) error {
	cfg := *config.Load()
	cfg.LLM.APIKey = maskKey(cfg.LLM.APIKey)
	cfg.TTS.APIKey = maskKey(cfg.TTS.APIKey)
	return c.JSON(http.StatusOK, cfg)
}

// Patch rejects runtime mutation. Configuration is environment-backed;
// change the environment and restart instead.
// PATCH /api/config
func (h *ConfigHandler) Patch(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": "configuration is read-only; set environment variables and restart",
	})
}

type probeOverrides struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// TestLLM probes the chat endpoint, optionally with overridden settings.
// POST /api/config/test-llm
func (h *ConfigHandler) TestLLM(c echo.Context) error {
	var body probeOverrides
	_ = c.Bind(&body)

	llmCfg := config.Load().LLM
	if body.APIKey != "" {
		llmCfg.APIKey = body.APIKey
	}
	if body.BaseURL != "" {
		llmCfg.BaseURL = body.BaseURL
	}
	if body.Model != "" {
		llmCfg.Model = body.Model
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return c.JSON(http.StatusOK, probeResult(false, err.Error()))
	}
	if err := client.Probe(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, probeResult(false, err.Error()))
	}
	return c.JSON(http.StatusOK, probeResult(true, "llm endpoint reachable"))
}

// TestTTS probes the speech endpoint, optionally with overridden settings.
// POST /api/config/test-tts
func (h *ConfigHandler) TestTTS(c echo.Context) error {
	var body probeOverrides
	_ = c.Bind(&body)

	ttsCfg := config.Load().TTS
	if body.APIKey != "" {
		ttsCfg.APIKey = body.APIKey
	}
	if body.Model != "" {
		ttsCfg.Model = body.Model
	}

	client, err := tts.NewClient(ttsCfg)
	if err != nil {
		return c.JSON(http.StatusOK, probeResult(false, err.Error()))
	}
	if err := client.Probe(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, probeResult(false, err.Error()))
	}
	return c.JSON(http.StatusOK, probeResult(true, "tts endpoint reachable"))
}

func probeResult(ok bool, message string) map[string]any {
	return map[string]any{"success": ok, "message": message}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
