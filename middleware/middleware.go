package middleware

import (
	"context"
	"net/http"

	"collabroom/auth"
	"collabroom/config"
	"collabroom/session"
)

// RequireSession gates the export endpoints: the sign-in cookie for
// browsers, a bearer JWT for API clients. Joining a room over /ws never
// passes through here.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
			if id, ok := session.Get(cookie.Value); ok {
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id.UserID, id.Name, id.Email)))
				return
			}
		}

		if token, err := auth.ReadBearer(r); err == nil {
			if claims, err := auth.ParseJWT(token); err == nil {
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims.UserID, claims.Name, claims.Email)))
				return
			}
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func withIdentity(ctx context.Context, userID, name, email string) context.Context {
	ctx = context.WithValue(ctx, config.ContextUserIDKey, userID)
	ctx = context.WithValue(ctx, config.ContextUserNameKey, name)
	return context.WithValue(ctx, config.ContextUserEmailKey, email)
}
