package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrTicketNotFound   = fmt.Errorf("ticket not found")
	ErrButtonNotFound   = fmt.Errorf("button not found")
	ErrTopicNotFound    = fmt.Errorf("support topic not found")
	ErrNotAuthorized    = fmt.Errorf("not an admin")
	ErrEmptyAnswer      = fmt.Errorf("model produced no text")
	ErrEmptyWords       = fmt.Errorf("no censored words have been found")
	ErrSelfReferral     = fmt.Errorf("users cannot refer themselves")
	ErrAlreadyReferred  = fmt.Errorf("user already has a referrer")
	ErrTicketNotTakable = fmt.Errorf("ticket is not open")
)
