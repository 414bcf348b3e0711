package services

import (
	"fmt"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
)

type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

type actorRole int

const (
	actorClient actorRole = iota
	actorWorker
)

func (r actorRole) String() string {
	if r == actorWorker {
		return models.RoleWorker
	}
	return models.RoleClient
}

type transitionRule struct {
	from []string
	to   string
}

// transitions is the complete booking state machine. Anything not listed is
// rejected.
var transitions = map[Action]map[actorRole]transitionRule{
	ActionAccept: {
		actorWorker: {from: []string{models.BookingPending}, to: models.BookingAccepted},
	},
	ActionDecline: {
		actorWorker: {from: []string{models.BookingPending}, to: models.BookingCancelled},
	},
	ActionStart: {
		actorWorker: {from: []string{models.BookingAccepted, models.BookingConfirmed}, to: models.BookingInProgress},
	},
	ActionComplete: {
		actorWorker: {
			from: []string{models.BookingAccepted, models.BookingConfirmed, models.BookingInProgress},
			to:   models.BookingCompleted,
		},
	},
	ActionCancel: {
		actorClient: {
			from: []string{models.BookingPending, models.BookingAccepted, models.BookingConfirmed, models.BookingInProgress},
			to:   models.BookingCancelled,
		},
		actorWorker: {from: []string{models.BookingPending}, to: models.BookingCancelled},
	},
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := transitions[a]; !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown booking action %q", s))
	}
	return a, nil
}

// nextStatus returns the status reached when actor applies action to a
// booking in status current.
func nextStatus(action Action, actor actorRole, current string) (string, error) {
	byActor, ok := transitions[action]
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown booking action %q", action))
	}
	rule, ok := byActor[actor]
	if !ok {
		return "", apperrors.NewAuthorizationError(fmt.Sprintf("a %s cannot %s this booking", actor, action))
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, nil
		}
	}
	return "", apperrors.NewInvalidStateError(fmt.Sprintf("cannot %s a booking that is %s", action, current))
}

var bookingStatuses = []string{
	models.BookingPending,
	models.BookingAccepted,
	models.BookingConfirmed,
	models.BookingInProgress,
	models.BookingCompleted,
	models.BookingCancelled,
}

func validBookingStatus(s string) bool {
	for _, st := range bookingStatuses {
		if st == s {
			return true
		}
	}
	return false
}
