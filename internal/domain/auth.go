package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims — полезная нагрузка RS256-токена агента.
// Scopes определяют, какие capability агент вообще имеет право просить
// исполнить (шлюз согласования стоит уже ЗА этой проверкой).
type CustomClaims struct {
	AgentID string          `json:"agent_id"`
	Scopes  map[string]bool `json:"scopes"` // например "jira.ticket.delete": true
	jwt.RegisteredClaims
}
