package api

import (
	"errors"
	"net/http"

	"collabroom/config"
)

func RequireUserID(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(config.ContextUserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("no user in context")
	}
	return userID, nil
}
