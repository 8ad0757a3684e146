package kidtube

import (
	"kidtube/storage"
	"kidtube/whitelist"
	"kidtube/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, kidtube.ErrResolutionFailed) {
//		fmt.Println(kidtube.UserMessage(err))
//	}
//
// Using errors.As() for wrapped errors:
//
//	var resErr *kidtube.ResolutionError
//	if errors.As(err, &resErr) {
//		for _, a := range resErr.Attempts {
//			fmt.Printf("%s: %v\n", a.Provider, a.Err)
//		}
//	}

// Type aliases for convenient error handling.
type (
	// ResolutionError is returned when every provider failed.
	ResolutionError = youtube.ResolutionError
	// ProviderError wraps a single provider failure.
	ProviderError = youtube.ProviderError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrResolutionFailed indicates no provider could resolve the content.
	ErrResolutionFailed = youtube.ErrResolutionFailed
	// ErrRateLimited indicates a provider was rate limited.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrPoolExhausted indicates every mirror instance is quarantined.
	ErrPoolExhausted = youtube.ErrPoolExhausted
	// ErrInvalidURL indicates the provided URL is invalid.
	ErrInvalidURL = youtube.ErrInvalidURL
	// ErrUnrecognizedURL indicates a URL is not a supported platform link.
	ErrUnrecognizedURL = whitelist.ErrUnrecognizedURL

	// Storage errors
	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates the content is already whitelisted.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
)

// UserMessage maps any error returned by this module onto a short message
// suitable for parents.
func UserMessage(err error) string {
	return whitelist.UserMessage(err)
}
