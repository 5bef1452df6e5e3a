package gate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/audit"
	"github.com/xela07ax/oversight-gate/internal/domain"
)

// Target — защищаемая операция: функция плюс таблица имен параметров
// (в Go нет рефлексии по именам аргументов, поэтому порядок имен
// объявляется явно; переполнение получает синтетические argN).
type Target struct {
	Name       string
	ParamNames []string
	Fn         func(ctx context.Context, args Args) (any, error)
}

// ambiguousLabel ограничивает кардинальность метрик: сырые статусы
// из ответа сервиса в лейблы не попадают
const ambiguousLabel = "Ambiguous"

// Gate — оркестрирующий конечный автомат согласования.
// Stateless между вызовами: каждый Invoke владеет своим correlation id,
// запросом и записью аудита, конкурентные вызовы независимы.
type Gate struct {
	agentName string
	action    string
	approvers []string
	refusal   any
	sender    Sender
	auditor   audit.Emitter
	logger    *zap.Logger
	metrics   *Metrics
}

// New валидирует конфигурацию шлюза при конструировании (fail-fast):
// отсутствие сконфигурированного endpoint (nil sender) и пустой список
// согласующих — ошибки создания, а не первого вызова.
func New(agentName, action string, approvers []string, refusal any, sender Sender, auditor audit.Emitter, logger *zap.Logger, metrics *Metrics) (*Gate, error) {
	if sender == nil {
		return nil, domain.ErrEndpointNotConfigured
	}
	if len(approvers) == 0 {
		return nil, domain.ErrNoApprovers
	}
	if refusal == nil {
		refusal = domain.DefaultRefusalMessage
	}
	if auditor == nil {
		auditor = audit.NewZapSink(logger)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Gate{
		agentName: agentName,
		action:    action,
		approvers: approvers,
		refusal:   refusal,
		sender:    sender,
		auditor:   auditor,
		logger:    logger.Named("gate").With(zap.String("agent", agentName)),
		metrics:   metrics,
	}, nil
}

// Invoke проводит один вызов через полный цикл согласования:
// Initiated -> решение -> (условное) исполнение. Блокирует вызывающего на
// время сетевого вызова (ограничен таймаутом клиента) плюс, при одобрении,
// на время самой операции. Target исполняется максимум один раз и только
// после явного Approved, зафиксированного в аудите.
func (g *Gate) Invoke(ctx context.Context, target Target, args Args) (any, error) {
	g.metrics.TotalInvocations.WithLabelValues(g.agentName, target.Name).Inc()
	start := time.Now()

	// Свежий correlation id на каждый вызов; не переиспользуется никогда
	correlationID := uuid.New().String()

	params := SerializeParams(target.ParamNames, args)

	// Рабочая запись аудита: мутируется по ходу автомата, но каждый emit
	// отдает стоку независимый снимок (Event — значение)
	event := audit.NewInitiated(g.agentName, correlationID, g.action, params)
	g.emit(event)

	req := domain.ApprovalRequest{
		AgentName:         g.agentName,
		ActionDescription: g.action,
		Parameters:        params,
		ApproverEmails:    g.approvers,
		CorrelationID:     correlationID,
		Timestamp:         audit.Now(),
	}

	g.logger.Info("requesting approval", zap.String("correlation_id", correlationID))
	outcome := g.sender.Send(ctx, req)

	switch outcome.Kind {
	case OutcomeTimeout:
		g.transition(&event, domain.StatusTimeout)
		event.CompletionTimestamp = audit.Now()
		g.emit(event)
		g.observe(start, string(domain.StatusTimeout))
		g.logger.Warn("approval timed out", zap.String("correlation_id", correlationID))
		return g.refusal, nil

	case OutcomeError:
		g.transition(&event, domain.StatusError)
		event.Error = outcome.Err.Error()
		event.CompletionTimestamp = audit.Now()
		g.emit(event)
		g.observe(start, string(domain.StatusError))
		g.logger.Warn("approval transport failed",
			zap.String("correlation_id", correlationID), zap.Error(outcome.Err))
		return g.refusal, nil
	}

	decision := outcome.Decision

	if decision.IsApproved() {
		g.transition(&event, domain.StatusApproved)
		event.Approver = decision.Approver
		event.CompletionTimestamp = audit.Now()
		g.emit(event)

		g.logger.Info("approval received, executing",
			zap.String("correlation_id", correlationID),
			zap.String("approver", decision.Approver))
		return g.execute(ctx, target, args, event, start)
	}

	// Rejected и все неопознанные статусы — отказ без исполнения.
	// В аудит уходит сырой токен статуса: внешний сервис мог вернуть
	// что угодно, и след должен сохранить что именно.
	event.Approver = decision.Approver
	event.CompletionTimestamp = audit.Now()
	if decision.IsRejected() {
		g.transition(&event, domain.StatusRejected)
		g.emit(event)
		g.observe(start, string(domain.StatusRejected))
		g.logger.Warn("approval rejected",
			zap.String("correlation_id", correlationID),
			zap.String("approver", decision.Approver))
	} else {
		event.Status = domain.ApprovalStatus(decision.Status)
		g.emit(event)
		g.observe(start, ambiguousLabel)
		g.logger.Warn("approval status unclear, treating as refusal",
			zap.String("correlation_id", correlationID),
			zap.String("status", decision.Status))
	}

	return g.refusal, nil
}

// execute запускает операцию после зафиксированного Approved.
// Единственный путь, где fault пересекает границу шлюза: ошибка самой
// операции логируется как ExecutionFailed и пробрасывается вызывающему.
func (g *Gate) execute(ctx context.Context, target Target, args Args, event audit.Event, start time.Time) (any, error) {
	result, err := target.Fn(ctx, args)
	if err != nil {
		g.transition(&event, domain.StatusExecutionFailed)
		event.Error = err.Error()
		event.ExecutionTimestamp = audit.Now()
		g.emit(event)
		g.observe(start, string(domain.StatusExecutionFailed))
		g.logger.Error("execution failed after approval",
			zap.String("correlation_id", event.RowKey), zap.Error(err))
		return nil, err
	}

	g.transition(&event, domain.StatusExecuted)
	event.ExecutionTimestamp = audit.Now()
	g.emit(event)
	g.observe(start, string(domain.StatusExecuted))
	return result, nil
}

// transition переводит рабочую запись по правилам автомата.
// Нарушение здесь — баг шлюза, а не данных: фиксируем в логе и продолжаем,
// аудит важнее строгости.
func (g *Gate) transition(event *audit.Event, next domain.ApprovalStatus) {
	if err := event.Status.CanTransitionTo(next); err != nil {
		g.logger.Error("illegal status transition",
			zap.String("from", event.Status.String()),
			zap.String("to", next.String()),
			zap.String("correlation_id", event.RowKey))
	}
	event.Status = next
}

// emit изолирует сбои стока: упавший аудит не должен менять решение шлюза
func (g *Gate) emit(e audit.Event) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("audit sink panicked",
				zap.Any("panic", r), zap.String("row_key", e.RowKey))
		}
	}()
	g.auditor.Emit(e)
}

func (g *Gate) observe(start time.Time, status string) {
	g.metrics.InvokeDuration.WithLabelValues(g.agentName, status).Observe(time.Since(start).Seconds())
	g.metrics.DecisionTotal.WithLabelValues(status).Inc()
}
