package usecase

import (
	"context"
	"time"

	"DiffPlot/internal/domain/models"
)

// OptionsSource lists what the archive can serve.
type OptionsSource interface {
	Options(ctx context.Context) (models.Options, error)
}

// OptionsUseCase serves the symbol, interval and field choices of the UI.
type OptionsUseCase struct {
	src     OptionsSource
	timeout time.Duration
}

func NewOptionsUseCase(src OptionsSource) *OptionsUseCase {
	return &OptionsUseCase{src: src, timeout: 10 * time.Second}
}

func (uc *OptionsUseCase) GetOptions(ctx context.Context) (models.Options, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.src.Options(ctx)
}
