package audit

import (
	"time"

	"github.com/xela07ax/oversight-gate/internal/domain"
)

// Event — один неизменяемый снимок перехода жизненного цикла согласования.
// Ключи в PascalCase — контракт внешних потребителей (Table Storage-стиль):
// PartitionKey = имя агента, RowKey = correlation id.
type Event struct {
	PartitionKey string                `json:"PartitionKey"`
	RowKey       string                `json:"RowKey"`
	Status       domain.ApprovalStatus `json:"Status"`
	Timestamp    string                `json:"Timestamp"`

	// Контекст перехода (заполняются по мере прохождения автомата)
	ActionDescription   string         `json:"ActionDescription,omitempty"` // при Initiated
	Parameters          map[string]any `json:"Parameters,omitempty"`        // при Initiated
	Approver            string         `json:"Approver,omitempty"`          // при Approved/Rejected
	Error               string         `json:"Error,omitempty"`             // при Error/ExecutionFailed
	CompletionTimestamp string         `json:"CompletionTimestamp,omitempty"`
	ExecutionTimestamp  string         `json:"ExecutionTimestamp,omitempty"`
}

// Emitter — контракт внешнего стока аудита. Emit синхронный: событие должно
// быть передано стоку до возврата, порядок внутри одного RowKey сохраняется.
// Ошибки стока — забота самого стока (best-effort): шлюз обязан корректно
// довести решение даже если записать его некуда.
type Emitter interface {
	Emit(e Event)
}

// NewInitiated создает стартовую запись аудита (единственный вход в автомат)
func NewInitiated(agentName, correlationID, actionDescription string, parameters map[string]any) Event {
	return Event{
		PartitionKey:      agentName,
		RowKey:            correlationID,
		Status:            domain.StatusInitiated,
		Timestamp:         Now(),
		ActionDescription: actionDescription,
		Parameters:        parameters,
	}
}

// Now — текущий момент в UTC, ISO-8601 с точностью до наносекунд
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Tee рассылает событие по нескольким стокам, сохраняя порядок вызова.
// Каждый сток получает свою копию (Event — значение, мутации не расходятся).
type Tee []Emitter

func (t Tee) Emit(e Event) {
	for _, sink := range t {
		sink.Emit(e)
	}
}
