package domain

// DefaultRefusalMessage возвращается вызывающему, когда операция не была
// исполнена (отказ, таймаут, ошибка транспорта, неоднозначный ответ).
const DefaultRefusalMessage = "Approval denied or timed out via Human Oversight Approval Gate."

// ApprovalRequest — неизменяемый JSON-запрос к сервису согласования.
// Собирается один раз на каждый вызов шлюза и владеет только
// сериализованной копией параметров (никаких ссылок на состояние вызывающего).
type ApprovalRequest struct {
	AgentName         string         `json:"agentName"`
	ActionDescription string         `json:"actionDescription"`
	Parameters        map[string]any `json:"parameters"`
	ApproverEmails    []string       `json:"approverEmails"`
	CorrelationID     string         `json:"correlationId"`
	Timestamp         string         `json:"timestamp"` // ISO-8601, UTC
}

// Decision — payload решения из 2xx-ответа сервиса согласования.
type Decision struct {
	Status   string `json:"status"`
	Approver string `json:"approver"`
}

// UnknownApprover подставляется, если сервис не вернул identity согласующего
const UnknownApprover = "Unknown"

// IsApproved — исполнение разрешено только на явный Approved.
// Любое другое значение (включая опечатки сервиса) трактуется как отказ.
func (d Decision) IsApproved() bool {
	return ApprovalStatus(d.Status) == StatusApproved
}

func (d Decision) IsRejected() bool {
	return ApprovalStatus(d.Status) == StatusRejected
}
