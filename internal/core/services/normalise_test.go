package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermNormaliser_Normalise(t *testing.T) {
	n := NewTermNormaliser(nil)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops stop-words and punctuation",
			text: "What is the notice period for dismissal?",
			want: []string{"notice", "period", "dismissal"},
		},
		{
			name: "keeps section signs and numbers",
			text: "Section 86, §12(3) of the 1996 Act",
			want: []string{"section", "86", "§12", "3", "1996", "act"},
		},
		{
			name: "dedupes preserving first occurrence",
			text: "Notice notice NOTICE period",
			want: []string{"notice", "period"},
		},
		{
			name: "drops drafting words",
			text: "the said employer shall hereby pay",
			want: []string{"employer", "pay"},
		},
		{
			name: "keeps negations",
			text: "no notice not given",
			want: []string{"no", "notice", "not", "given"},
		},
		{
			name: "only stop-words",
			text: "what is it",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalise(tt.text))
		})
	}
}

func TestTermNormaliser_Deterministic(t *testing.T) {
	n := NewTermNormaliser(nil)
	text := "Unfair dismissal: remedies, compensation and re-engagement"

	first := n.Normalise(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, n.Normalise(text))
	}
}

func TestTermNormaliser_ExtraStopWords(t *testing.T) {
	n := NewTermNormaliser([]string{" Tribunal ", ""})

	assert.Equal(t, []string{"held"}, n.Normalise("the tribunal held"))
}

func TestTermNormaliser_NormaliseTerms(t *testing.T) {
	n := NewTermNormaliser(nil)

	assert.Equal(t, []string{"minimum", "wage", "rate"}, n.NormaliseTerms([]string{"Minimum", "wage-rate", "the", "WAGE"}))
}
