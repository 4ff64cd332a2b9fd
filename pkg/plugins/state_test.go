package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		allowed  bool
	}{
		{StateDiscovered, StateLoaded, true},
		{StateDiscovered, StateUnhealthy, true},
		{StateDiscovered, StateHealthy, false},
		{StateLoaded, StateHealthy, true},
		{StateLoaded, StateUnhealthy, true},
		{StateLoaded, StateDiscovered, false},
		{StateHealthy, StateUnhealthy, true},
		{StateUnhealthy, StateHealthy, true},
		{StateHealthy, StateEvicted, true},
		{StateUnhealthy, StateEvicted, true},
		{StateEvicted, StateHealthy, false},
		{StateEvicted, StateLoaded, false},
		{StateEvicted, StateEvicted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))

			next, err := tt.from.transition(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, next)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "healthy", StateHealthy.String())
	assert.Equal(t, "evicted", StateEvicted.String())
	assert.Equal(t, "state(42)", State(42).String())
}
