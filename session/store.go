package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// Identity is what the export endpoints know about a signed-in user.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

var (
	mu    sync.RWMutex
	store = make(map[string]Identity) // session token -> identity
)

func Create(id Identity) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	token := base64.RawURLEncoding.EncodeToString(b)

	mu.Lock()
	store[token] = id
	mu.Unlock()

	return token, nil
}

func Get(token string) (Identity, bool) {
	mu.RLock()
	defer mu.RUnlock()
	id, ok := store[token]
	return id, ok
}

func Delete(token string) {
	mu.Lock()
	delete(store, token)
	mu.Unlock()
}
