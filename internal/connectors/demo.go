package connectors

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"time"

	"github.com/xela07ax/oversight-gate/internal/gate"
)

// Capability — чувствительная операция демо-стенда. Исполняется только
// через шлюз согласования; ParamNames — объявленная таблица имен для
// маппинга позиционных аргументов.
type Capability struct {
	ID          string
	Description string
	ParamNames  []string
	Fn          func(ctx context.Context, args gate.Args) (any, error)
}

// Demo возвращает набор имитируемых интеграций.
// Задержка 50-300мс имитирует реальные системы; unstable.service всегда
// падает — нужен для прогона ветки ExecutionFailed.
func Demo() []Capability {
	return []Capability{
		{
			ID:          "jira.ticket.delete",
			Description: "Permanently delete a Jira ticket",
			ParamNames:  []string{"ticket_id"},
			Fn: simulated(func(args gate.Args) (any, error) {
				return map[string]any{"status": "deleted", "integration": "jira", "ticket_id": args.Named["ticket_id"]}, nil
			}),
		},
		{
			ID:          "slack.message.send",
			Description: "Post a message to a Slack channel",
			ParamNames:  []string{"channel", "message"},
			Fn: simulated(func(args gate.Args) (any, error) {
				return map[string]any{"status": "sent", "integration": "slack", "channel": args.Named["channel"]}, nil
			}),
		},
		{
			ID:          "db.query.execute",
			Description: "Execute a raw SQL statement against production",
			ParamNames:  []string{"query"},
			Fn: simulated(func(args gate.Args) (any, error) {
				return map[string]any{"status": "success", "rows_affected": 0}, nil
			}),
		},
		{
			ID:          "crm.lead.create",
			Description: "Create a lead in the CRM",
			ParamNames:  []string{"name", "email"},
			Fn: simulated(func(args gate.Args) (any, error) {
				return map[string]any{"status": "created", "lead_id": "L-990"}, nil
			}),
		},
		{
			ID:          "unstable.service",
			Description: "Call a service that is known to fail",
			ParamNames:  []string{"payload"},
			Fn: simulated(func(args gate.Args) (any, error) {
				return nil, fmt.Errorf("service internal error")
			}),
		},
	}
}

// simulated оборачивает операцию имитацией сетевой задержки с уважением ctx
func simulated(fn func(args gate.Args) (any, error)) func(ctx context.Context, args gate.Args) (any, error) {
	return func(ctx context.Context, args gate.Args) (any, error) {
		latency := time.Duration(50+rand.IntN(250)) * time.Millisecond

		select {
		case <-time.After(latency):
			// Имитация работы
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return fn(args)
	}
}
