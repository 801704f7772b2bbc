package importers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/ris"
)

// Converter turns exchange text into target items.
//
// Implementations:
//   - LocalConverter - the built-in exchange-format builder
//   - FallbackConverter - a translation server backed by LocalConverter
type Converter interface {
	Convert(ctx context.Context, content string) ([]entities.Item, error)
}

// LocalConverter builds items with ris.Builder. It holds no per-call state,
// so one instance is shared by concurrent requests.
type LocalConverter struct {
	logger zerolog.Logger
}

func NewLocalConverter(logger zerolog.Logger) *LocalConverter {
	return &LocalConverter{logger: logger}
}

func (c *LocalConverter) Convert(ctx context.Context, content string) ([]entities.Item, error) {
	items, _, err := c.ConvertWithStats(ctx, content)
	return items, err
}

// ConvertWithStats is Convert plus the builder statistics of this call.
func (c *LocalConverter) ConvertWithStats(_ context.Context, content string) ([]entities.Item, ris.Stats, error) {
	if _, err := ris.Validate(content); err != nil {
		return nil, ris.Stats{}, err
	}
	builder := ris.NewBuilder(c.logger)
	items := builder.BuildAll(ris.Parse(content))
	return items, builder.Stats(), nil
}

// Translator is the remote conversion service.
type Translator interface {
	TranslateAll(ctx context.Context, content string) ([]entities.Item, error)
}

// FallbackConverter asks the translation server first and builds locally
// when it fails.
type FallbackConverter struct {
	remote Translator
	local  *LocalConverter
	logger zerolog.Logger
}

func NewFallbackConverter(remote Translator, local *LocalConverter, logger zerolog.Logger) *FallbackConverter {
	return &FallbackConverter{remote: remote, local: local, logger: logger}
}

func (c *FallbackConverter) Convert(ctx context.Context, content string) ([]entities.Item, error) {
	if _, err := ris.Validate(content); err != nil {
		return nil, err
	}
	items, err := c.remote.TranslateAll(ctx, content)
	if err == nil {
		c.logger.Info().Int("items", len(items)).Msg("translated by server")
		return items, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.logger.Warn().Err(err).Msg("translation server failed, using local builder")
	return c.local.Convert(ctx, content)
}

// Compile-time interface checks
var (
	_ Converter = (*LocalConverter)(nil)
	_ Converter = (*FallbackConverter)(nil)
)
