package asr

import (
	"fmt"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// Recognizer wraps the sherpa-onnx offline transducer model.
type Recognizer struct {
	config     *Config
	recognizer *sherpa.OfflineRecognizer
}

// NewRecognizer creates a recognizer from the given model configuration.
func NewRecognizer(config *Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sherpaConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: config.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Transducer: sherpa.OfflineTransducerModelConfig{
				Encoder: config.EncoderPath,
				Decoder: config.DecoderPath,
				Joiner:  config.JoinerPath,
			},
			Tokens:     config.TokensPath,
			NumThreads: config.NumThreads,
			Provider:   "cpu",
			ModelType:  "nemo_transducer",
			Debug:      0,
		},
	}

	recognizer := sherpa.NewOfflineRecognizer(&sherpaConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create offline recognizer")
	}

	return &Recognizer{config: config, recognizer: recognizer}, nil
}

// Close releases the underlying model.
func (r *Recognizer) Close() error {
	if r.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(r.recognizer)
		r.recognizer = nil
	}
	return nil
}

// decodeChunk runs one synchronous recognition pass over raw samples and
// returns the text, tokens and per-token end times in seconds.
func (r *Recognizer) decodeChunk(samples []float32, sampleRate int) (string, []string, []float64, error) {
	stream := sherpa.NewOfflineStream(r.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	r.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return "", nil, nil, fmt.Errorf("recognizer returned no result")
	}

	endTimes := make([]float64, len(result.Timestamps))
	for i, t := range result.Timestamps {
		endTimes[i] = float64(t)
	}
	return result.Text, result.Tokens, endTimes, nil
}
