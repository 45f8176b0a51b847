package sessionstore

import "github.com/google/uuid"

type uuidTokenSource struct{}

func (uuidTokenSource) NewToken() string {
	return uuid.NewString()
}

// NewUUIDTokenSource returns the default process-wide unique token source.
func NewUUIDTokenSource() TokenSource {
	return uuidTokenSource{}
}
