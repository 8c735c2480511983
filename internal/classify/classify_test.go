package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdesk/internal/news"
)

func newClassifier() *Classifier {
	return New([]Rule{
		{Category: "sports", Keywords: []string{"futebol", "gol", "campeonato", "vence"}},
		{Category: "politics", Keywords: []string{"eleição", "senado", "governo"}},
		{Category: "economy", Keywords: []string{"inflação", "governo"}},
	}, []string{"horóscopo", "patrocinado"}, "general")
}

func TestCategoryFirstMatchWins(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		name string
		item news.CandidateItem
		want string
	}{
		{"sports", news.CandidateItem{Title: "Flamengo vence clássico"}, "sports"},
		{"accent folded", news.CandidateItem{Title: "ELEICAO no Rio"}, "politics"},
		{"order decides overlap", news.CandidateItem{Title: "Governo anuncia inflação menor"}, "politics"},
		{"snippet counts", news.CandidateItem{Title: "Notícia", Snippet: "O campeonato começou"}, "sports"},
		{"short word is whole word", news.CandidateItem{Title: "Golpe financeiro"}, "general"},
		{"unmatched gets default", news.CandidateItem{Title: "Chuva forte em Recife"}, "general"},
		{"known preset kept", news.CandidateItem{Title: "Flamengo vence", Category: "economy"}, "economy"},
		{"unknown preset ignored", news.CandidateItem{Title: "Flamengo vence", Category: "weird"}, "sports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Category(tt.item))
		})
	}
}

func TestApplyIsTotalOverSurvivors(t *testing.T) {
	c := newClassifier()
	items := []news.CandidateItem{
		{Title: "Horóscopo do dia"},
		{Title: "Flamengo vence"},
		{Title: "Conteúdo patrocinado sobre o senado"},
		{Title: "Algo sem categoria"},
		{Title: "Senado vota reforma"},
	}

	out, excluded := c.Apply(items)
	assert.Equal(t, 2, excluded)
	require.Len(t, out, 3)
	for _, it := range out {
		assert.NotEmpty(t, it.Category)
	}
	assert.Equal(t, []string{"sports", "general", "politics"}, []string{out[0].Category, out[1].Category, out[2].Category})
}

func TestShortNonLatinKeywords(t *testing.T) {
	c := New([]Rule{
		{Category: "politics", Keywords: []string{"ЄС"}},
		{Category: "food", Keywords: []string{"øl"}},
	}, nil, "general")

	assert.Equal(t, "politics", c.Category(news.CandidateItem{Title: "Україна та ЄС підписали угоду"}))
	assert.Equal(t, "food", c.Category(news.CandidateItem{Title: "Dansk øl vinder pris"}))
	assert.Equal(t, "general", c.Category(news.CandidateItem{Title: "Bøller i byen"}))
}
