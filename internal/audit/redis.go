package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/infra"
)

// RedisSink — append-only сток на Redis Streams.
// XADD по определению только дописывает: снимки переходов никогда не
// мутируются в стриме, каждый Emit — новая запись.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	logger *zap.Logger

	// Ограничитель на один XADD, чтобы недоступный Redis
	// не удерживал решение шлюза
	timeout time.Duration
}

func NewRedisSink(rdb *redis.Client, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		rdb:     rdb,
		stream:  infra.RedisKeyAuditStream,
		logger:  logger.With(zap.String("mod", "audit-redis")),
		timeout: 2 * time.Second,
	}
}

func (s *RedisSink) Emit(e Event) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("audit event not serializable", zap.String("row_key", e.RowKey), zap.Error(err))
		return
	}

	// Background: контекст вызова может быть уже отменен, а запись аудита
	// должна иметь собственный шанс завершиться
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"partition_key": e.PartitionKey,
			"row_key":       e.RowKey,
			"status":        e.Status.String(),
			"event":         raw,
		},
	}).Err()

	if err != nil {
		// Best-effort: ошибка стока не должна ломать control flow шлюза
		s.logger.Error("audit stream append failed",
			zap.String("row_key", e.RowKey),
			zap.Error(err),
		)
	}
}
