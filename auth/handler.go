package auth

import (
	"encoding/json"
	"net/http"

	"collabroom/session"
)

const SessionCookie = "exportSession"

// HandleSession trades a Google ID token for an export session cookie.
// Rooms themselves stay open; only the export surface wants a name on the
// file it writes.
func HandleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}

		user, err := VerifyIDToken(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		sessionToken, err := session.Create(session.Identity{
			UserID: user.UserID,
			Name:   user.Name,
			Email:  user.Email,
		})
		if err != nil {
			http.Error(w, "fail to create session", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sessionToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   false,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   60 * 60 * 24,
		})

		w.WriteHeader(http.StatusOK)
	}
}

// HandleToken is the non-browser variant: a Google ID token in, a signed
// bearer token out, for clients that cannot carry cookies.
func HandleToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}

		user, err := VerifyIDToken(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		signed, err := CreateJWT(user)
		if err != nil {
			http.Error(w, "fail to sign token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": signed})
	}
}
