package v1

import "errors"

var (
	ErrResolutionCtx     = errors.New("resolution request missing in context")
	ErrPatchCtx          = errors.New("patch body missing in context")
	ErrDesiredStatusJSON = errors.New("desiredStatus is required")
	ErrCancelOnly        = errors.New("only Cancelled is a valid desiredStatus")
	ErrConsumerID        = errors.New("consumerId is required")
	ErrSourceURI         = errors.New("source.uri is required")
	ErrContentType       = errors.New("Content-Type must be application/json")
)
