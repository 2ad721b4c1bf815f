package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

func TestGameError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Room not found", ErrRoomNotFound.Error())
	assert.Equal(t, "Not enough economy", ErrInsufficientEconomy.Error())
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"direct", ErrRoomFull, protocol.ErrCodeRoomFull},
		{"wrapped", fmt.Errorf("join: %w", ErrCountrySelectionConflict), protocol.ErrCodeCountryConflict},
		{"plain error", errors.New("boom"), protocol.ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Only the host can do that", Message(fmt.Errorf("x: %w", ErrNotHost)))
	assert.Equal(t, "Unknown error", Message(errors.New("boom")))
}

func TestErrorsIs(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("attack: %w", ErrAlreadyOwned)
	assert.ErrorIs(t, wrapped, ErrAlreadyOwned)
	assert.NotErrorIs(t, wrapped, ErrNotOwner)
}
