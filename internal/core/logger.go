package core

import (
	"log/slog"
	"net/http"

	"biteindex/internal/types"
)

// SlogAdapter lets a *slog.Logger satisfy types.Logger.
type SlogAdapter struct {
	L *slog.Logger
}

// NewSlogAdapter wraps l.
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	return &SlogAdapter{L: l}
}

func (a *SlogAdapter) Info(msg string, args ...any)  { a.L.Info(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.L.Error(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.L.Warn(msg, args...) }

func (a *SlogAdapter) With(args ...any) types.Logger {
	return &SlogAdapter{L: a.L.With(args...)}
}

// RequestScopedLogger stores a logger tagged with the request ID in the
// context. Services fetch it with LogFrom.
func (s *Server) RequestScopedLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.Logger.With(slog.String("request_id", types.GetRequestID(r.Context())))
		ctx := types.WithLogger(r.Context(), NewSlogAdapter(l))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LogFrom returns the request logger in ctx, or fallback wrapped as a
// types.Logger when there is none.
func LogFrom(r *http.Request, fallback *slog.Logger) types.Logger {
	if l := types.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return NewSlogAdapter(fallback)
}

var _ types.Logger = (*SlogAdapter)(nil)
