package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"biteindex/internal/types"
)

// telegramInitDataHeader is the alternative carrier for the raw initData
// string when the client cannot set Authorization.
const telegramInitDataHeader = "X-Telegram-Init-Data"

// authPublicPaths are readable without credentials. A valid credential on
// these paths still attaches the Actor, which the rate limiter keys on.
var authPublicPaths = map[string]bool{
	"/health":                true,
	"/v1/fish-types":         true,
	"/v1/bite-index":         true,
	"/v1/bite-index/series":  true,
	"/v1/weather":            true,
	"/v1/reservoir/boundary": true,
}

// AuthMiddleware resolves the Telegram credential to an Actor and stores it
// in the request context.
//
// Credentials are read from "Authorization: tma <initData>", from
// "Authorization: Bearer <initData>" or from the X-Telegram-Init-Data header.
// When none is present the Authenticator may supply an anonymous Actor (demo
// mode); otherwise protected paths answer 401 auth_token_missing.
//
// A nil Authenticator disables the middleware.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		public := authPublicPaths[r.URL.Path] || r.Method == http.MethodOptions
		token := extractInitData(r)

		if token == "" {
			if actor := s.anonymousActor(); actor != nil {
				next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), *actor)))
				return
			}
			if public {
				next.ServeHTTP(w, r)
				return
			}
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Telegram init data is required")
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err == nil && actor == nil {
			err = types.NewAppError(types.ErrCodeAuthTokenInvalid, "credential did not resolve to a user", nil)
		}
		if err != nil {
			if public {
				// Reads stay available with a broken credential.
				s.Logger.Debug("ignoring invalid credential on public path",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			s.handleAuthError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), *actor)))
	})
}

func (s *Server) anonymousActor() *types.Actor {
	if anon, ok := s.Authenticator.(AnonymousAuthenticator); ok {
		return anon.AnonymousActor()
	}
	return nil
}

// extractInitData returns the credential from the request or "" when none
// is present. Authorization takes precedence over the custom header.
func extractInitData(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if !ok {
			return ""
		}
		if strings.EqualFold(scheme, "tma") || strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(telegramInitDataHeader))
}

// handleAuthError maps a ResolveToken failure to a 401. Unknown errors are
// logged and reported as auth_token_invalid without internal detail.
func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeAuthTokenExpired:
			s.Logger.Warn("authentication failed: init data expired",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenExpired, "Telegram init data has expired")
			return
		case types.ErrCodeAuthTokenInvalid, types.ErrCodeAuthTokenMissing:
			s.Logger.Warn("authentication failed: init data invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error_code", string(appErr.Code)),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid Telegram init data")
			return
		}
	}

	s.Logger.Error("authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication failed")
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	JSON(w, r, http.StatusUnauthorized, APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: types.GetRequestID(r.Context()),
		},
	})
}

// RequireActor rejects requests that reached the handler without an Actor.
// Routes that write data are wrapped with it.
func (s *Server) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := types.GetActor(r.Context()); !ok {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
