package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Token lifecycle errors
	ErrNotConnected   = fmt.Errorf("account not connected")
	ErrNeedsReconnect = fmt.Errorf("account needs reconnect")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTokenExpired   = fmt.Errorf("access token expired")

	// Remote gateway errors
	ErrRemoteNotFound  = fmt.Errorf("remote playlist not found")
	ErrRemoteOrphaned  = fmt.Errorf("remote playlist not in library")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrForbidden       = fmt.Errorf("forbidden")
	ErrPayloadTooLarge = fmt.Errorf("payload too large")
	ErrRetryable       = fmt.Errorf("retryable remote failure")

	// Sync engine errors
	ErrPartialFailure     = fmt.Errorf("sync completed partially")
	ErrCancelled          = fmt.Errorf("sync cancelled")
	ErrUnprocessableImage = fmt.Errorf("image cannot be normalized")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
