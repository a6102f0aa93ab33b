package mongo

import (
	"github.com/Laisky/errors/v2"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
)

// NotFound reports whether err means the query matched no document.
func NotFound(err error) bool {
	return errors.Is(err, mongoLib.ErrNoDocuments)
}

// Unreachable reports whether err is caused by the server being unreachable,
// as opposed to a query or decoding failure.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}

	return mongoLib.IsNetworkError(err) ||
		mongoLib.IsTimeout(err) ||
		errors.Is(err, mongoLib.ErrClientDisconnected)
}

// DuplicateKey reports whether err violates a unique index.
func DuplicateKey(err error) bool {
	return mongoLib.IsDuplicateKeyError(err)
}
