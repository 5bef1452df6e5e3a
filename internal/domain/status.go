package domain

import "errors"

// Статусы State Machine контура Human Oversight.
// Токены — часть wire-контракта аудита: внешние потребители (дашборды,
// Table Storage) матчатся на них буквально, менять написание нельзя.
type ApprovalStatus string

const (
	StatusInitiated ApprovalStatus = "Initiated"
	StatusApproved  ApprovalStatus = "Approved"
	StatusRejected  ApprovalStatus = "Rejected"
	StatusTimeout   ApprovalStatus = "Timeout"
	StatusError     ApprovalStatus = "Error"

	// Статусы исполнения (достижимы только из Approved)
	StatusExecuted        ApprovalStatus = "Executed"
	StatusExecutionFailed ApprovalStatus = "ExecutionFailed"
)

var (
	ErrInvalidTransition = errors.New("invalid approval status transition")

	// ErrEndpointNotConfigured — ConfigurationError из таксономии:
	// поднимается при конструировании шлюза, а не при первом вызове (fail-fast)
	ErrEndpointNotConfigured = errors.New("approval endpoint is not configured")
	ErrNoApprovers           = errors.New("approver list must not be empty")
)

// transitions описывает единственно допустимые переходы:
// Initiated -> {Approved, Rejected, Timeout, Error}, Approved -> {Executed, ExecutionFailed}.
// Остальные статусы терминальны.
var transitions = map[ApprovalStatus][]ApprovalStatus{
	StatusInitiated: {StatusApproved, StatusRejected, StatusTimeout, StatusError},
	StatusApproved:  {StatusExecuted, StatusExecutionFailed},
}

// CanTransitionTo проверяет правила конечного автомата
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) error {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return nil
		}
	}
	return ErrInvalidTransition
}

// IsTerminal — из статуса нет ни одного исходящего перехода
func (s ApprovalStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s ApprovalStatus) String() string {
	return string(s)
}
