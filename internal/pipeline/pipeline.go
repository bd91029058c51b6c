package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"echolot/internal/align"
	"echolot/internal/asr"
	"echolot/internal/audio"
	"echolot/internal/config"
	"echolot/internal/llm"
	"echolot/internal/models"
	"echolot/internal/nlp"
	"echolot/internal/segment"
	"echolot/internal/storage"
	"echolot/internal/subtitle"
	"echolot/internal/tts"
)

// Progress checkpoints committed while a task runs.
const (
	progressConverted   = 0.1
	progressTranscribed = 0.3
	progressSegmented   = 0.6
	progressAligned     = 0.9
)

// Transcriber produces a raw transcript from a normalized WAV file.
type Transcriber interface {
	Transcribe(audioPath string) (*asr.RawTranscript, error)
}

// Synthesizer renders a text script to a WAV file on disk.
type Synthesizer interface {
	GenerateToFile(ctx context.Context, text string, opts tts.Options, outputDir string) (string, error)
}

// SemanticSplitter re-segments text by meaning via an external model.
type SemanticSplitter interface {
	SplitByMeaning(ctx context.Context, text string, maxLength int) ([]string, error)
}

// Result is the serialized output stored on a completed task.
type Result struct {
	Segments []subtitle.Entry `json:"segments"`
	SRT      string           `json:"srt"`
}

// Pipeline turns one uploaded file into a subtitle track.
type Pipeline struct {
	Tasks      *storage.TaskRepository
	UploadsDir string
	TempTTSDir string

	// Optional overrides, mainly for tests. Nil fields are resolved from
	// configuration on first use.
	Transcriber Transcriber
	Annotator   nlp.Annotator
	LLM         SemanticSplitter
	TTS         Synthesizer

	recognizerOnce sync.Once
	recognizer     *asr.Recognizer
	recognizerErr  error
}

// New creates a pipeline writing generated files under uploadsDir.
func New(tasks *storage.TaskRepository, uploadsDir string) *Pipeline {
	return &Pipeline{
		Tasks:      tasks,
		UploadsDir: uploadsDir,
		TempTTSDir: filepath.Join("output", "temp_tts"),
	}
}

// Process runs the full pipeline for a claimed task and returns the
// serialized result. Status transitions are left to the caller.
func (p *Pipeline) Process(ctx context.Context, task *models.Task) (string, error) {
	cfg := config.Load()

	audioPath, err := p.resolveAudio(ctx, task, cfg)
	if err != nil {
		return "", err
	}

	wavPath, err := audio.ConvertToWav(audioPath, cfg.ASR.EnableDemucs)
	if err != nil {
		return "", fmt.Errorf("audio conversion: %w", err)
	}
	if wavPath != audioPath {
		defer func() {
			if err := os.Remove(wavPath); err != nil {
				log.Printf("Warning: could not remove temp wav %s: %v", wavPath, err)
			}
		}()
	}
	p.checkpoint(ctx, task.ID, progressConverted)

	duration := p.recordDuration(ctx, task.ID, wavPath)

	transcriber, err := p.resolveTranscriber(cfg)
	if err != nil {
		return "", err
	}
	transcript, err := transcriber.Transcribe(wavPath)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	if duration == 0 {
		duration = transcript.LastEndTime()
	}
	p.checkpoint(ctx, task.ID, progressTranscribed)

	segments, err := p.split(ctx, transcript, duration, cfg)
	if err != nil {
		return "", err
	}
	p.checkpoint(ctx, task.ID, progressSegmented)

	merged := segment.MergeShort(segments, p.mergeConfig(cfg))
	srt := subtitle.FormatSRT(merged)
	if err := p.writeSRT(task.ID, srt); err != nil {
		log.Printf("Warning: could not write srt for task %s: %v", task.ID, err)
	}
	p.checkpoint(ctx, task.ID, progressAligned)

	result := Result{Segments: subtitle.Entries(merged), SRT: srt}
	blob, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("serialize result: %w", err)
	}
	return string(blob), nil
}

// resolveAudio returns the audio file to transcribe. Text scripts are
// synthesized first and the task is repointed at the generated audio.
func (p *Pipeline) resolveAudio(ctx context.Context, task *models.Task, cfg *config.Config) (string, error) {
	switch strings.ToLower(filepath.Ext(task.FilePath)) {
	case ".txt", ".md":
	default:
		return task.FilePath, nil
	}

	text, err := tts.LoadScript(task.FilePath)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("script %s is empty", task.Filename)
	}

	synth := p.TTS
	if synth == nil {
		client, err := tts.NewClient(cfg.TTS)
		if err != nil {
			return "", err
		}
		synth = client
	}

	generated, err := synth.GenerateToFile(ctx, text, tts.Options{}, p.TempTTSDir)
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}

	stored := filepath.Join(p.UploadsDir, task.ID+"_generated.wav")
	if err := os.MkdirAll(p.UploadsDir, 0755); err != nil {
		return "", err
	}
	if err := os.Rename(generated, stored); err != nil {
		// Cross-device rename can fail; fall back to the temp location.
		log.Printf("Warning: could not move generated audio: %v", err)
		stored = generated
	}
	if err := p.Tasks.UpdateFilePath(ctx, task.ID, stored); err != nil {
		log.Printf("Warning: could not update file path for task %s: %v", task.ID, err)
	}
	task.FilePath = stored
	return stored, nil
}

// split refines pre-split segments into subtitle pieces and aligns them
// back onto token timing.
func (p *Pipeline) split(ctx context.Context, transcript *asr.RawTranscript, duration float64, cfg *config.Config) ([]segment.Segment, error) {
	preSegments := segment.PreSplit(transcript, duration)

	annotator := p.Annotator
	if annotator == nil {
		annotator = nlp.Default(cfg.App.AnnotatorURL, cfg.App.SourceLanguage)
	}
	splitter := nlp.NewSplitter(annotator, cfg.App.SourceLanguage, cfg.App.MaxSplitLength)

	semantic := p.LLM
	if semantic == nil && cfg.App.UseLLM {
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			log.Printf("Warning: semantic splitting requested but %v, using rule-based splitter", err)
		} else {
			semantic = client
		}
	}

	var out []segment.Segment
	for _, seg := range preSegments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}

		var pieces []string
		if cfg.App.UseLLM && semantic != nil {
			var err error
			pieces, err = semantic.SplitByMeaning(ctx, seg.Text, cfg.App.MaxSplitLength)
			if err != nil {
				log.Printf("Warning: semantic split failed (%v), falling back to rule-based splitter", err)
				pieces = nil
			}
		}
		if len(pieces) == 0 {
			var err error
			pieces, err = splitter.Split(ctx, seg.Text)
			if err != nil {
				return nil, fmt.Errorf("linguistic split: %w", err)
			}
		}
		if len(pieces) == 0 {
			continue
		}

		out = append(out, align.Pieces(pieces, seg)...)
	}
	return out, nil
}

func (p *Pipeline) mergeConfig(cfg *config.Config) segment.MergeConfig {
	mc := segment.DefaultMergeConfig()
	if cfg.App.MaxSplitLength > 0 {
		mc.MaxChars = cfg.App.MaxSplitLength
	}
	return mc
}

func (p *Pipeline) resolveTranscriber(cfg *config.Config) (Transcriber, error) {
	if p.Transcriber != nil {
		return p.Transcriber, nil
	}
	p.recognizerOnce.Do(func() {
		asrCfg, err := asr.NewConfig(cfg.ASR.ParakeetModelDir)
		if err != nil {
			p.recognizerErr = err
			return
		}
		p.recognizer, p.recognizerErr = asr.NewRecognizer(asrCfg)
	})
	if p.recognizerErr != nil {
		return nil, fmt.Errorf("load recognizer: %w", p.recognizerErr)
	}
	return p.recognizer, nil
}

// recordDuration probes the converted audio and stores the duration on the
// task. Returns 0 when the duration is unknown.
func (p *Pipeline) recordDuration(ctx context.Context, taskID, wavPath string) float64 {
	d, err := audio.Duration(wavPath)
	if err != nil {
		if info, perr := audio.Probe(wavPath); perr == nil {
			d = info.Duration()
		} else {
			log.Printf("Warning: could not determine duration of %s: %v", wavPath, err)
			return 0
		}
	}
	if err := p.Tasks.UpdateDuration(ctx, taskID, d); err != nil {
		log.Printf("Warning: could not store duration for task %s: %v", taskID, err)
	}
	return d
}

func (p *Pipeline) writeSRT(taskID, srt string) error {
	if err := os.MkdirAll(p.UploadsDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(p.SRTPath(taskID), []byte(srt), 0o644)
}

// SRTPath returns where the subtitle file of a task is stored.
func (p *Pipeline) SRTPath(taskID string) string {
	return filepath.Join(p.UploadsDir, taskID+".srt")
}

func (p *Pipeline) checkpoint(ctx context.Context, taskID string, progress float64) {
	if err := p.Tasks.UpdateProgress(ctx, taskID, progress); err != nil {
		log.Printf("Warning: could not update progress for task %s: %v", taskID, err)
	}
}
