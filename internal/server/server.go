package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/gate"
	"github.com/xela07ax/oversight-gate/internal/infra/auth"
)

// Invoker Описываем, что нам нужно от шлюза согласования
type Invoker interface {
	Invoke(ctx context.Context, target gate.Target, args gate.Args) (any, error)
}

// GatedCapability связывает операцию с её персональным шлюзом
type GatedCapability struct {
	Target gate.Target
	Gate   Invoker
}

// Server — HTTP-фасад демо-стенда: агент просит исполнить capability,
// сервер прогоняет вызов через шлюз согласования.
type Server struct {
	router *chi.Mux
	logger *zap.Logger
	caps   map[string]GatedCapability

	// nil допустим: локальный стенд без ключа работает без токенов
	validator auth.TokenValidator
}

func New(logger *zap.Logger, caps map[string]GatedCapability, validator auth.TokenValidator) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.Named("server"),
		caps:      caps,
		validator: validator,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР ---
	r.Group(func(r chi.Router) {
		if s.validator != nil {
			r.Use(auth.NewMiddleware(s.validator, s.logger))
		}
		r.Post("/v1/execute/{capability}", s.handleExecute)
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	capID := chi.URLParam(r, "capability")

	gated, ok := s.caps[capID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown capability"})
		return
	}

	// Scopes из токена: шлюз согласования стоит ЗА авторизацией агента
	if s.validator != nil {
		scopes := auth.ScopesFromContext(r.Context())
		if !scopes[capID] {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "token does not grant capability " + capID})
			return
		}
	}

	// По HTTP принимаем только именованные аргументы (JSON-объект);
	// позиционная форма — для программного использования шлюза
	var named map[string]any
	if err := json.NewDecoder(r.Body).Decode(&named); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := gated.Gate.Invoke(r.Context(), gated.Target, gate.Args{Named: named})
	if err != nil {
		// Единственный fault, пересекающий границу шлюза — сбой самой операции
		s.logger.Error("capability execution failed", zap.String("capability", capID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
