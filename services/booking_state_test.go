package services

import (
	"testing"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus_Allowed(t *testing.T) {
	cases := []struct {
		action Action
		actor  actorRole
		from   string
		want   string
	}{
		{ActionAccept, actorWorker, models.BookingPending, models.BookingAccepted},
		{ActionDecline, actorWorker, models.BookingPending, models.BookingCancelled},
		{ActionStart, actorWorker, models.BookingAccepted, models.BookingInProgress},
		{ActionStart, actorWorker, models.BookingConfirmed, models.BookingInProgress},
		{ActionComplete, actorWorker, models.BookingAccepted, models.BookingCompleted},
		{ActionComplete, actorWorker, models.BookingConfirmed, models.BookingCompleted},
		{ActionComplete, actorWorker, models.BookingInProgress, models.BookingCompleted},
		{ActionCancel, actorClient, models.BookingPending, models.BookingCancelled},
		{ActionCancel, actorClient, models.BookingInProgress, models.BookingCancelled},
		{ActionCancel, actorWorker, models.BookingPending, models.BookingCancelled},
	}
	for _, tc := range cases {
		t.Run(string(tc.action)+"/"+tc.actor.String()+"/"+tc.from, func(t *testing.T) {
			got, err := nextStatus(tc.action, tc.actor, tc.from)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextStatus_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		actor  actorRole
		from   string
		kind   apperrors.Kind
	}{
		{"client cannot accept", ActionAccept, actorClient, models.BookingPending, apperrors.KindAuthorization},
		{"client cannot complete", ActionComplete, actorClient, models.BookingInProgress, apperrors.KindAuthorization},
		{"complete from pending", ActionComplete, actorWorker, models.BookingPending, apperrors.KindInvalidState},
		{"start from pending", ActionStart, actorWorker, models.BookingPending, apperrors.KindInvalidState},
		{"accept twice", ActionAccept, actorWorker, models.BookingAccepted, apperrors.KindInvalidState},
		{"worker declines accepted", ActionDecline, actorWorker, models.BookingAccepted, apperrors.KindInvalidState},
		{"worker cancels accepted", ActionCancel, actorWorker, models.BookingAccepted, apperrors.KindInvalidState},
		{"cancel completed", ActionCancel, actorClient, models.BookingCompleted, apperrors.KindInvalidState},
		{"cancel cancelled", ActionCancel, actorClient, models.BookingCancelled, apperrors.KindInvalidState},
		{"complete completed", ActionComplete, actorWorker, models.BookingCompleted, apperrors.KindInvalidState},
		{"revive cancelled", ActionAccept, actorWorker, models.BookingCancelled, apperrors.KindInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := nextStatus(tc.action, tc.actor, tc.from)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperrors.KindOf(err))
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for action, byActor := range transitions {
		for actor, rule := range byActor {
			for _, from := range rule.from {
				assert.NotEqual(t, models.BookingCompleted, from, "%s/%s", action, actor)
				assert.NotEqual(t, models.BookingCancelled, from, "%s/%s", action, actor)
			}
		}
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("complete")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, a)

	_, err = ParseAction("reopen")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
