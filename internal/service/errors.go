package service

import "errors"

var (
	ErrMissingBase     = errors.New("base configuration is missing")
	ErrInvalidSlots    = errors.New("one or more LED slots have an invalid frame count")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownSource   = errors.New("unknown source")
	ErrWrongStep       = errors.New("operation not allowed at the current step")
	ErrUnknownSlot     = errors.New("not an editable LED slot")
	ErrFrameOutOfRange = errors.New("frame out of range")
)
