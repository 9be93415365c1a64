package auth

import (
	"context"
	"errors"
	"os"

	"google.golang.org/api/idtoken"
)

// UserInfo is the identity extracted from a verified Google ID token. It
// only decorates exports and chat display; room membership never requires
// it.
type UserInfo struct {
	UserID string
	Name   string
	Email  string
}

func VerifyIDToken(ctx context.Context, token string) (*UserInfo, error) {
	payload, err := idtoken.Validate(ctx, token, os.Getenv("GOOGLE_CLIENT_ID"))
	if err != nil {
		return nil, err
	}

	sub, ok := payload.Claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid sub")
	}

	name, _ := payload.Claims["name"].(string)
	email, _ := payload.Claims["email"].(string)

	return &UserInfo{UserID: sub, Name: name, Email: email}, nil
}
