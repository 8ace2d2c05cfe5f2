package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	lounge := DefaultPolicy(KindLounge)
	assert.Equal(t, Policy{MinMinutes: 15, MaxMinutes: 120, MaxDaysAdvance: 30}, lounge)

	station := DefaultPolicy(KindStation)
	assert.Equal(t, Policy{MinMinutes: 30, MaxMinutes: 120, MaxDaysAdvance: 30}, station)

	assert.NoError(t, lounge.Validate())
	assert.NoError(t, station.Validate())
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		ok     bool
	}{
		{"valid", Policy{MinMinutes: 30, MaxMinutes: 120, MaxDaysAdvance: 30}, true},
		{"min equals max", Policy{MinMinutes: 60, MaxMinutes: 60, MaxDaysAdvance: 7}, true},
		{"zero min", Policy{MinMinutes: 0, MaxMinutes: 120, MaxDaysAdvance: 30}, false},
		{"negative max", Policy{MinMinutes: 30, MaxMinutes: -15, MaxDaysAdvance: 30}, false},
		{"min above max", Policy{MinMinutes: 90, MaxMinutes: 60, MaxDaysAdvance: 30}, false},
		{"off-grid min", Policy{MinMinutes: 20, MaxMinutes: 120, MaxDaysAdvance: 30}, false},
		{"off-grid max", Policy{MinMinutes: 30, MaxMinutes: 100, MaxDaysAdvance: 30}, false},
		{"zero advance window", Policy{MinMinutes: 30, MaxMinutes: 120, MaxDaysAdvance: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			}
		})
	}
}
