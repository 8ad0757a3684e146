package whitelist

import (
	"context"
	"errors"

	"kidtube/storage"
	"kidtube/youtube"
)

// Messages shown to parents. Every error maps onto exactly one of these.
const (
	MsgUnrecognizedURL = "That doesn't look like a YouTube video, channel or playlist link."
	MsgAlreadyApproved = "This content is already approved for this profile."
	MsgNotFound        = "That item or profile doesn't exist."
	MsgInvalidInput    = "Some of the details are missing or invalid."
	MsgCancelled       = "The request was cancelled or timed out."
	MsgGeneric         = "Something went wrong. Please try again."
)

// UserMessage maps err onto a parent-facing message. It returns "" for a
// nil error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnrecognizedURL):
		return MsgUnrecognizedURL
	case errors.Is(err, youtube.ErrResolutionFailed):
		return youtube.UserMessage
	case errors.Is(err, storage.ErrAlreadyExists):
		return MsgAlreadyApproved
	case errors.Is(err, storage.ErrNotFound):
		return MsgNotFound
	case errors.Is(err, storage.ErrInvalidInput):
		return MsgInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return MsgCancelled
	}
	return MsgGeneric
}
