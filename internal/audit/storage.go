package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Storage определяет, куда физически дописываются события аудита.
// Append-only: сток никогда не обновляет ранее записанные снимки.
type Storage interface {
	Append(ctx context.Context, e Event) error
}

// StorageSink адаптирует Storage под синхронный Emitter.
// Без буферизации и батчей: порядок внутри одного correlation id совпадает
// с порядком переходов, событие уходит в сток до возврата из Emit.
type StorageSink struct {
	repo    Storage
	logger  *zap.Logger
	timeout time.Duration
}

func NewStorageSink(repo Storage, logger *zap.Logger) *StorageSink {
	return &StorageSink{
		repo:    repo,
		logger:  logger.With(zap.String("mod", "audit-storage")),
		timeout: 3 * time.Second,
	}
}

func (s *StorageSink) Emit(e Event) {
	// Background: запись аудита не должна отменяться вместе с контекстом вызова
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.repo.Append(ctx, e); err != nil {
		// Best-effort: недоступная БД — проблема наблюдаемости, не решения
		s.logger.Error("audit append failed",
			zap.String("row_key", e.RowKey),
			zap.String("status", e.Status.String()),
			zap.Error(err),
		)
	}
}
