package audit

import (
	"encoding/json"

	"go.uber.org/zap"
)

// ZapSink пишет события аудита в структурированный лог.
// Это базовый сток: он есть всегда, даже если Postgres/Redis не настроены.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.With(zap.String("mod", "audit"))}
}

func (s *ZapSink) Emit(e Event) {
	// Одно событие — одна JSON-строка, как в исходном Table Storage формате
	raw, err := json.Marshal(e)
	if err != nil {
		// Parameters к этому моменту уже transport-safe, сюда попадать не должны
		s.logger.Error("audit event not serializable",
			zap.String("row_key", e.RowKey),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("approval event",
		zap.String("partition_key", e.PartitionKey),
		zap.String("row_key", e.RowKey),
		zap.String("status", e.Status.String()),
		zap.ByteString("event", raw),
	)
}
