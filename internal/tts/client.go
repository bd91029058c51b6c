package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"echolot/internal/audio"
	"echolot/internal/config"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("tts: api key not configured")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// The API returns raw PCM16 at this rate.
	pcmSampleRate = 24000
)

// Options override per-request synthesis settings. Zero values fall back to
// the configured defaults.
type Options struct {
	Voice string
	Speed string
	Tone  string
}

// Client generates speech via the generative-language REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	cfg        config.TTSConfig
	httpClient *http.Client
}

// NewClient builds a TTS client from configuration.
func NewClient(cfg config.TTSConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    defaultBaseURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type voiceConfig struct {
	PrebuiltVoiceConfig struct {
		VoiceName string `json:"voiceName"`
	} `json:"prebuiltVoiceConfig"`
}

func newVoiceConfig(name string) voiceConfig {
	var v voiceConfig
	v.PrebuiltVoiceConfig.VoiceName = name
	return v
}

type speakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type multiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
}

type speechConfig struct {
	VoiceConfig             *voiceConfig             `json:"voiceConfig,omitempty"`
	MultiSpeakerVoiceConfig *multiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig,omitempty"`
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Synthesize converts text to a WAV file held in memory. Texts mentioning
// both Redner1 and Redner2 are rendered as a two-voice conversation using
// the configured male and female voices.
func (c *Client) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	speed := c.cfg.Speed
	if opts.Speed != "" {
		speed = opts.Speed
	}
	tone := c.cfg.Tone
	if opts.Tone != "" {
		tone = opts.Tone
	}

	multiSpeaker := strings.Contains(text, "Redner1") && strings.Contains(text, "Redner2")

	instruction := fmt.Sprintf("Please read the following German text at a %s pace with a %s tone.\n", speed, tone)
	if multiSpeaker {
		instruction += "The conversation is between Redner1 and Redner2.\n"
	}

	req := generateRequest{
		Contents: []content{{Parts: []contentPart{{Text: instruction + "---\n" + text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}

	if multiSpeaker {
		req.GenerationConfig.SpeechConfig.MultiSpeakerVoiceConfig = &multiSpeakerVoiceConfig{
			SpeakerVoiceConfigs: []speakerVoiceConfig{
				{Speaker: "Redner1", VoiceConfig: newVoiceConfig(c.cfg.VoiceMale)},
				{Speaker: "Redner2", VoiceConfig: newVoiceConfig(c.cfg.VoiceFemale)},
			},
		}
	} else {
		voice := c.cfg.VoiceMale
		if opts.Voice != "" {
			voice = opts.Voice
		}
		v := newVoiceConfig(voice)
		req.GenerationConfig.SpeechConfig.VoiceConfig = &v
	}

	pcm, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := audio.WritePCM16Wav(&buf, pcm, pcmSampleRate); err != nil {
		return nil, fmt.Errorf("tts: wrap wav: %w", err)
	}
	return buf.Bytes(), nil
}

// Probe synthesizes a short phrase to verify the endpoint and key work.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Synthesize(ctx, "Hallo.", Options{})
	return err
}

func (c *Client) generate(ctx context.Context, payload generateRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tts: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}

	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("tts: decode audio: %w", err)
			}
			return pcm, nil
		}
	}
	return nil, errors.New("tts: response contained no audio")
}
