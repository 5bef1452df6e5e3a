package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "oversight"
)

const (
	// RedisKeyAuditStream — стрим аудита (XADD, append-only).
	// Читатели (дашборды, экспортеры) подключаются через XREAD/consumer groups.
	RedisKeyAuditStream = RedisNamespace + ":audit:events"
)
