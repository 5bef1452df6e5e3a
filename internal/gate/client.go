package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/domain"
)

// DefaultRequestTimeout — граница одного сетевого вызова к сервису согласования
const DefaultRequestTimeout = 120 * time.Second

// maxResponseBytes защищает от бесконечного тела ответа
const maxResponseBytes = 1 << 20

// OutcomeKind — трехвариантная классификация результата вызова:
// решение получено / таймаут / ошибка транспорта. Других вариантов нет.
type OutcomeKind int

const (
	OutcomeDecision OutcomeKind = iota
	OutcomeTimeout
	OutcomeError
)

type Outcome struct {
	Kind     OutcomeKind
	Decision domain.Decision // заполнен только при OutcomeDecision
	Err      error           // детали транспортной ошибки (при OutcomeError)
}

// Sender — контракт отправки запроса на согласование.
// Реализации: Client (один вызов без ретраев) и ResilientSender (внешний слой).
type Sender interface {
	Send(ctx context.Context, req domain.ApprovalRequest) Outcome
}

// ThrottleError сигнализирует 429 от сервиса согласования.
// RetryAfter учитывается внешним resilience-слоем при расчете задержки.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

// Client выполняет ровно один ограниченный по времени POST на endpoint
// согласования. Состояния между вызовами нет — безопасен для конкурентного
// переиспользования. Ретраев нет by contract: повторная отправка — это
// повторное уведомление согласующих, решать об этом должен внешний слой.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

// NewClient валидирует endpoint сразу (fail-fast, до первого трафика)
func NewClient(url string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if url == "" {
		return nil, domain.ErrEndpointNotConfigured
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		url:     url,
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger.With(zap.String("mod", "approval-client")),
	}, nil
}

// Send выполняет один сетевой вызов и классифицирует исход.
func (c *Client) Send(ctx context.Context, req domain.ApprovalRequest) Outcome {
	body, err := json.Marshal(req)
	if err != nil {
		// Параметры к этому моменту transport-safe, но страхуемся
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("failed to marshal approval request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("failed to build approval request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			c.logger.Error("approval request timed out",
				zap.String("correlation_id", req.CorrelationID))
			return Outcome{Kind: OutcomeTimeout, Err: err}
		}
		c.logger.Error("approval request failed",
			zap.String("correlation_id", req.CorrelationID), zap.Error(err))
		return Outcome{Kind: OutcomeError, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("failed to read approval response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		tErr := &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("approval service returned 429"),
		}
		return Outcome{Kind: OutcomeError, Err: tErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("approval service returned non-2xx",
			zap.String("correlation_id", req.CorrelationID),
			zap.Int("status_code", resp.StatusCode))
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("approval service returned %d", resp.StatusCode)}
	}

	var decision domain.Decision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("malformed approval response: %w", err)}
	}
	if decision.Approver == "" {
		decision.Approver = domain.UnknownApprover
	}

	return Outcome{Kind: OutcomeDecision, Decision: decision}
}

// isTimeout отделяет истекший дедлайн от прочих сетевых сбоев,
// чтобы в аудите таймаут не превращался в generic Error
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func parseRetryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
