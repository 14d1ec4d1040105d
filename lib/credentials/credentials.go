package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissing marks a credential that is absent or blank in the
// environment. It is a configuration error: the affected source must
// fail before any network activity happens for it.
var ErrMissing = errors.New("missing credential")

type Credentials struct {
	Username string
	Password string
}

func valid(v string) bool {
	return strings.TrimSpace(v) != ""
}

// FromEnv reads a username/password pair from the environment.
func FromEnv(userVar, passVar string) (Credentials, error) {
	creds := Credentials{
		Username: os.Getenv(userVar),
		Password: os.Getenv(passVar),
	}
	if !valid(creds.Username) {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissing, userVar)
	}
	if !valid(creds.Password) {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissing, passVar)
	}
	return creds, nil
}

// KeyFromEnv reads a single api key from the environment.
func KeyFromEnv(keyVar string) (string, error) {
	key := os.Getenv(keyVar)
	if !valid(key) {
		return "", fmt.Errorf("%w: %s", ErrMissing, keyVar)
	}
	return key, nil
}
