package auth

import (
	"errors"
	"net/http"
	"strings"
)

func ReadBearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("malformed authorization header")
	}
	return token, nil
}
