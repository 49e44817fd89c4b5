package ports

import (
	"context"

	"goannotate/domain/core"
	"goannotate/domain/feedback"
)

// ConfigRepository persists the active feedback config and its stats snapshot
type ConfigRepository interface {
	// SaveActive stores cfg as the active config, replacing any previous one
	SaveActive(ctx context.Context, cfg *feedback.Config) error

	// GetActive returns the active config, or core.ErrConfigNotFound
	GetActive(ctx context.Context) (*feedback.Config, error)

	// Get returns a config by id from the active slot or the archive
	Get(ctx context.Context, id core.ConfigID) (*feedback.Config, error)

	// SaveStats updates the stats snapshot embedded in the stored config
	SaveStats(ctx context.Context, id core.ConfigID, stats *feedback.ConfigStats) error
}
