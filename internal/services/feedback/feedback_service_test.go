package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/skilltrade-api/internal/models"
)

func TestEloChange(t *testing.T) {
	tests := []struct {
		rating string
		delta  int
	}{
		{models.RatingExcellent, 25},
		{models.RatingGood, 15},
		{models.RatingNeutral, 5},
		{models.RatingPoor, -15},
	}

	for _, tt := range tests {
		delta, ok := eloChange(tt.rating)
		assert.True(t, ok, tt.rating)
		assert.Equal(t, tt.delta, delta, tt.rating)
	}
}

func TestEloChangeUnknownRating(t *testing.T) {
	_, ok := eloChange("amazing")
	assert.False(t, ok)
}
