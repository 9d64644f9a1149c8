package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInput() tradeInput {
	return tradeInput{
		Name:          "Дизайн логотипа",
		Description:   "Нарисую логотип в обмен на верстку",
		Difficulty:    "intermediate",
		ServiceGiven:  "Дизайн логотипа",
		ServiceWanted: "Верстка лендинга",
		Tags:          []string{"design", "logo"},
	}
}

func TestValidateTradeInput(t *testing.T) {
	assert.Empty(t, validateTradeInput(validInput()))
}

func TestValidateTradeInputMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*tradeInput)
	}{
		{"empty name", func(in *tradeInput) { in.Name = "  " }},
		{"empty description", func(in *tradeInput) { in.Description = "" }},
		{"empty service given", func(in *tradeInput) { in.ServiceGiven = "" }},
		{"empty service wanted", func(in *tradeInput) { in.ServiceWanted = " " }},
		{"bad difficulty", func(in *tradeInput) { in.Difficulty = "expert" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			assert.NotEmpty(t, validateTradeInput(in))
		})
	}
}
