package service

import (
	"context"

	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/pkg/logger"
)

// loggingNotifier is the in-core milestone consumer. Push-notification
// campaigns and moderation dashboards are external collaborators that
// plug in behind worker.Notifier; by default milestones are logged.
type loggingNotifier struct {
	logger logger.Logger
}

func newLoggingNotifier(l logger.Logger) *loggingNotifier {
	return &loggingNotifier{logger: l.Named("milestones")}
}

func (n *loggingNotifier) Notify(ctx context.Context, m model.Milestone) error {
	switch m.Kind {
	case model.MilestoneFunded:
		n.logger.Info(ctx, "record crossed the funding threshold",
			logger.String("barcode", m.Barcode),
			logger.Int64("score", m.Score),
		)
	case model.MilestoneTrending:
		n.logger.Info(ctx, "record crossed the trending threshold",
			logger.String("barcode", m.Barcode),
			logger.Int("scans_last_24h", m.Velocity),
		)
	}
	return nil
}
