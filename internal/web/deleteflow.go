package web

import "errors"

// DeleteState is a step of the delete confirmation flow on the detail page.
type DeleteState string

const (
	DeleteIdle       DeleteState = "idle"
	DeleteConfirming DeleteState = "confirming"
	DeleteDeleting   DeleteState = "deleting"
)

// DeleteEvent drives the delete confirmation flow.
type DeleteEvent string

const (
	DeleteRequested DeleteEvent = "request"
	DeleteCancelled DeleteEvent = "cancel"
	DeleteConfirmed DeleteEvent = "confirm"
	DeleteSucceeded DeleteEvent = "succeeded"
	DeleteFailed    DeleteEvent = "failed"
)

var (
	// ErrDeleteInFlight is returned for a confirm while a delete is running.
	ErrDeleteInFlight = errors.New("delete already in progress")
	// ErrInvalidTransition is returned for events the current state does not accept.
	ErrInvalidTransition = errors.New("invalid delete flow transition")
)

// DeleteFlow holds the confirmation state and the last failure message.
type DeleteFlow struct {
	State DeleteState
	Error string
}

// Confirming reports whether the confirmation prompt is shown.
func (f DeleteFlow) Confirming() bool {
	return f.State == DeleteConfirming
}

// Deleting reports whether a delete is in flight.
func (f DeleteFlow) Deleting() bool {
	return f.State == DeleteDeleting
}

// Next applies event and returns the resulting flow. reason is kept only
// for DeleteFailed. Rejected events leave the flow unchanged.
func (f DeleteFlow) Next(event DeleteEvent, reason string) (DeleteFlow, error) {
	if f.State == "" {
		f.State = DeleteIdle
	}
	switch f.State {
	case DeleteIdle:
		if event == DeleteRequested {
			return DeleteFlow{State: DeleteConfirming}, nil
		}
	case DeleteConfirming:
		switch event {
		case DeleteCancelled:
			return DeleteFlow{State: DeleteIdle}, nil
		case DeleteConfirmed:
			return DeleteFlow{State: DeleteDeleting}, nil
		}
	case DeleteDeleting:
		switch event {
		case DeleteConfirmed:
			return f, ErrDeleteInFlight
		case DeleteSucceeded:
			return DeleteFlow{State: DeleteIdle}, nil
		case DeleteFailed:
			return DeleteFlow{State: DeleteIdle, Error: reason}, nil
		}
	}
	return f, ErrInvalidTransition
}
