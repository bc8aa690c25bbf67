package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/autoshow/internal/ai"
	"github.com/kiranshivaraju/autoshow/internal/artifact"
	"github.com/kiranshivaraju/autoshow/internal/prompt"
	"github.com/kiranshivaraju/autoshow/internal/segment"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

const documentService = "document"

func (s *Service) ingest(ctx context.Context, r *jobRun) error {
	start := time.Now()
	ing, err := s.deps.Ingester.Ingest(ctx, r.opts.Input)
	if err != nil {
		return err
	}
	r.ingested = ing
	r.stages.Ingest = &models.IngestMetadata{
		Strategy:         r.opts.Input.Kind,
		AudioPath:        ing.AudioPath,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	return nil
}

func (s *Service) transcribe(ctx context.Context, r *jobRun) error {
	if r.ingested.IsDocument() {
		r.transcript = &models.Transcript{Text: r.ingested.Text, Service: documentService}
		r.promptTranscript = r.ingested.Text
		r.stages.Transcription = &models.TranscriptionMetadata{Service: documentService}
		return nil
	}

	splitter := segment.NewSplitter(s.deps.Segment, s.deps.Extractor,
		s.deps.Transcriber(r.opts.Transcription.Model), s.deps.WorkDir, r.logger)
	res, err := splitter.Transcribe(ctx, r.ingested.AudioPath, r.ingested.Metadata.DurationSeconds,
		func(done, total int) {
			if total <= 1 {
				return
			}
			r.tracker.UpdateStepWithSubStep(ctx, models.StageTranscribe, done, total,
				fmt.Sprintf("segment %d of %d", done, total), "Transcribing audio")
		})
	if err != nil {
		return err
	}

	t := res.Transcript
	r.transcript = t
	r.promptTranscript = t.Text
	if len(t.Segments) > 0 {
		r.promptTranscript = prompt.RenderTranscript(t.Segments)
	}
	r.stages.Transcription = &models.TranscriptionMetadata{
		Service:          t.Service,
		Model:            t.Model,
		SegmentCount:     len(t.Segments),
		Windows:          res.Windows,
		TokenCount:       t.TokenCount,
		ProcessingTimeMs: t.ProcessingTimeMs,
	}
	return nil
}

func (s *Service) selectContent(_ context.Context, r *jobRun) error {
	built, err := prompt.Build(r.opts.Prompts, r.ingested.Metadata, r.promptTranscript)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	r.built = built
	return nil
}

func (s *Service) generate(ctx context.Context, r *jobRun) error {
	res, err := s.execute(ctx, r, r.built.Prompt, r.built.Schema, "show_notes")
	if err != nil {
		return err
	}
	text, err := prompt.Render(r.built.Selection, res.Data)
	if err != nil {
		return fmt.Errorf("rendering content: %w", err)
	}
	r.generated = text
	meta := res.Metadata()
	meta.Prompts = r.built.Selection
	r.stages.Generation = meta
	return nil
}

func (s *Service) speech(ctx context.Context, r *jobRun) error {
	gen, err := configured(s.deps.Artifacts.Speech)
	if err != nil {
		return err
	}
	start := time.Now()
	art, err := gen.Generate(ctx, artifact.Request{
		Input:   r.generated,
		Options: artifactOptions("voice", r.opts.Speech.Voice),
	})
	if err != nil {
		return err
	}
	r.stages.Speech = stageMetadata(gen, start, art)
	return nil
}

func (s *Service) images(ctx context.Context, r *jobRun) error {
	gen, err := configured(s.deps.Artifacts.Image)
	if err != nil {
		return err
	}
	start := time.Now()
	prompts := r.opts.Images.Prompts
	arts := make([]models.Artifact, 0, len(prompts))
	for i, p := range prompts {
		r.tracker.UpdateStepWithSubStep(ctx, models.StageImages, i, len(prompts),
			fmt.Sprintf("image %d of %d", i+1, len(prompts)), "Generating images")
		art, err := gen.Generate(ctx, artifact.Request{
			Input:   p,
			Options: artifactOptions("size", r.opts.Images.Size),
		})
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		arts = append(arts, art)
	}
	r.stages.Images = stageMetadata(gen, start, arts...)
	return nil
}

func (s *Service) music(ctx context.Context, r *jobRun) error {
	gen, err := configured(s.deps.Artifacts.Music)
	if err != nil {
		return err
	}
	start := time.Now()

	style := r.opts.Music.Style
	res, err := s.execute(ctx, r, prompt.LyricsPrompt(style, r.generated), prompt.LyricsSchema, "lyrics")
	if err != nil {
		return fmt.Errorf("writing lyrics: %w", err)
	}
	var lyrics prompt.Lyrics
	if err := json.Unmarshal(res.Data, &lyrics); err != nil {
		return fmt.Errorf("decoding lyrics: %w", err)
	}
	r.tracker.UpdateStepProgress(ctx, models.StageMusic, 50, "Composing music")

	art, err := gen.Generate(ctx, artifact.Request{
		Input:   lyrics.Lyrics,
		Options: artifactOptions("style", style, "title", lyrics.Title),
	})
	if err != nil {
		return err
	}
	meta := stageMetadata(gen, start, art)
	meta.Generation = res.Metadata()
	meta.Text = lyrics.Lyrics
	r.stages.Music = meta
	return nil
}

func (s *Service) video(ctx context.Context, r *jobRun) error {
	gen, err := configured(s.deps.Artifacts.Video)
	if err != nil {
		return err
	}
	start := time.Now()

	count := r.opts.Video.Scenes
	aspect := r.opts.Video.AspectRatio
	res, err := s.execute(ctx, r, prompt.ScenesPrompt(count, aspect, r.generated), prompt.ScenesSchema, "scenes")
	if err != nil {
		return fmt.Errorf("describing scenes: %w", err)
	}
	var scenes prompt.Scenes
	if err := json.Unmarshal(res.Data, &scenes); err != nil {
		return fmt.Errorf("decoding scenes: %w", err)
	}
	descriptions := make([]string, 0, count)
	for _, sc := range scenes.Scenes {
		if strings.TrimSpace(sc) != "" && len(descriptions) < count {
			descriptions = append(descriptions, sc)
		}
	}
	if len(descriptions) == 0 {
		return fmt.Errorf("describing scenes: %w: no scenes returned", ai.ErrMalformedResponse)
	}

	arts := make([]models.Artifact, 0, len(descriptions))
	for i, d := range descriptions {
		r.tracker.UpdateStepWithSubStep(ctx, models.StageVideo, i, len(descriptions),
			fmt.Sprintf("scene %d of %d", i+1, len(descriptions)), "Generating video")
		art, err := gen.Generate(ctx, artifact.Request{
			Input:   d,
			Options: artifactOptions("aspect_ratio", aspect),
		})
		if err != nil {
			return fmt.Errorf("scene %d: %w", i+1, err)
		}
		arts = append(arts, art)
	}
	meta := stageMetadata(gen, start, arts...)
	meta.Generation = res.Metadata()
	meta.Text = strings.Join(descriptions, "\n")
	r.stages.Video = meta
	return nil
}

// execute runs one structured generation call with the job's LLM preference.
func (s *Service) execute(ctx context.Context, r *jobRun, p string, schema json.RawMessage, name string) (*ai.Result, error) {
	res, err := s.deps.Executor.Execute(ctx, ai.Request{
		Provider:   r.opts.LLM.Provider,
		Model:      r.opts.LLM.Model,
		Prompt:     p,
		Schema:     schema,
		SchemaName: name,
	})
	if errors.Is(err, ai.ErrNoCredentialedProvider) {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return res, err
}

func configured(g artifact.Generator) (artifact.Generator, error) {
	if g == nil || !g.Configured() {
		name := "artifact"
		if g != nil {
			name = g.Name()
		}
		return nil, fmt.Errorf("%w: %s provider is not configured", ErrConfiguration, name)
	}
	return g, nil
}

func stageMetadata(g artifact.Generator, start time.Time, arts ...models.Artifact) *models.ArtifactStageMetadata {
	var total float64
	for _, a := range arts {
		total += a.Cost
	}
	return &models.ArtifactStageMetadata{
		Service:          g.Name(),
		Artifacts:        arts,
		TotalCost:        total,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// artifactOptions builds an options map from key/value pairs, dropping empty values.
func artifactOptions(kv ...string) map[string]string {
	var out map[string]string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[kv[i]] = kv[i+1]
	}
	return out
}
