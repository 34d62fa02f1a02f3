package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrSessionClosed  = fmt.Errorf("session closed")
	ErrServerClosed   = fmt.Errorf("server closed")
	ErrQueueClosed    = fmt.Errorf("queue closed")
	ErrFrameTooLarge  = fmt.Errorf("frame exceeds size limit")
	ErrUnknownFrame   = fmt.Errorf("unknown frame kind")
	ErrAlreadyStarted = fmt.Errorf("already started")
)
