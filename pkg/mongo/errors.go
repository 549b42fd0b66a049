package mongo

import "errors"

// Errors returned by the connection helpers. The driver error is joined to
// each, so errors.Is works against both.
var (
	// ErrFailedToConnectToMongo means every connection attempt failed or ctx ended first.
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	// ErrHealthcheckFailed is returned by the readiness check when the ping fails.
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
	// ErrIndexCreation means a storage could not ensure its collection indexes.
	ErrIndexCreation = errors.New("failed to create mongo indexes")
)
