package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/oversight-gate/internal/domain"
	"github.com/xela07ax/oversight-gate/internal/infra"
)

// ResilientSender — опциональный внешний слой над approval-клиентом:
// rate limiter + circuit breaker + ретраи. Ретраится ТОЛЬКО транспортная
// ошибка. Таймаут не ретраится никогда: истекший дедлайн не значит, что
// запрос не дошел — он может уже лежать в почте согласующего, и повторная
// отправка продублирует уведомление.
type ResilientSender struct {
	next     Sender
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	attempts uint
}

func NewResilientSender(next Sender, cfg infra.ResilienceConfig) *ResilientSender {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "approval-endpoint",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
	})

	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}

	return &ResilientSender{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		attempts: attempts,
	}
}

func (w *ResilientSender) Send(ctx context.Context, req domain.ApprovalRequest) Outcome {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("rate limit exceeded: %w", err)}
	}

	var last Outcome

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.attempts),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если endpoint вернул 429 с Retry-After — уважаем его
				var tErr *ThrottleError
				if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка) — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			last = w.next.Send(ctx, req)
			if last.Kind == OutcomeError {
				return last.Err
			}
			// Решение или таймаут — терминальный исход, попытки не нужны
			return nil
		})

		return nil, retryErr
	})

	if err != nil {
		// Либо CB открыт (last не заполнен), либо попытки исчерпаны
		return Outcome{Kind: OutcomeError, Err: err}
	}

	return last
}
