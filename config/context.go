package config

type contextKey string

const (
	ContextUserIDKey    contextKey = "userId"
	ContextUserNameKey  contextKey = "userName"
	ContextUserEmailKey contextKey = "userEmail"
)
