package asr

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds paths to the offline transducer model artifacts.
type Config struct {
	ModelDir    string
	EncoderPath string
	DecoderPath string
	JoinerPath  string
	TokensPath  string
	NumThreads  int
	SampleRate  int
}

// NewConfig locates the transducer components inside a model directory.
// Quantized int8 variants are preferred when present.
func NewConfig(modelDir string) (*Config, error) {
	config := &Config{
		ModelDir:   modelDir,
		NumThreads: 4,
		SampleRate: 16000,
	}

	encoderPath := findModelFile(modelDir, []string{"encoder.int8.onnx", "encoder.onnx"})
	if encoderPath == "" {
		return nil, fmt.Errorf("encoder model not found in %s", modelDir)
	}
	config.EncoderPath = encoderPath

	decoderPath := findModelFile(modelDir, []string{"decoder.int8.onnx", "decoder.onnx"})
	if decoderPath == "" {
		return nil, fmt.Errorf("decoder model not found in %s", modelDir)
	}
	config.DecoderPath = decoderPath

	joinerPath := findModelFile(modelDir, []string{"joiner.int8.onnx", "joiner.onnx"})
	if joinerPath == "" {
		return nil, fmt.Errorf("joiner model not found in %s", modelDir)
	}
	config.JoinerPath = joinerPath

	tokensPath := findModelFile(modelDir, []string{"tokens.txt"})
	if tokensPath == "" {
		return nil, fmt.Errorf("tokens.txt not found in %s", modelDir)
	}
	config.TokensPath = tokensPath

	return config, nil
}

// Validate checks that all required model files exist.
func (c *Config) Validate() error {
	files := map[string]string{
		"encoder": c.EncoderPath,
		"decoder": c.DecoderPath,
		"joiner":  c.JoinerPath,
		"tokens":  c.TokensPath,
	}
	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return nil
}

func findModelFile(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
