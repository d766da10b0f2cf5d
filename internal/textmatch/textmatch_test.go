package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Crème Fraîche", "creme fraiche"},
		{"  200g de   POMMES de terre ", "200g de pommes de terre"},
		{"Végétarien", "vegetarien"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("200g de pommes de terre", "Pommes de Terre"))
	assert.True(t, Contains("Filet de cabillaud", "CABILLAUD"))
	assert.False(t, Contains("Filet de cabillaud", ""))
	assert.False(t, Contains("Filet de cabillaud", "saumon"))
}

func TestPatterns(t *testing.T) {
	p := Compile([]string{"", "  ", "Arachide", "crème"})
	assert.Len(t, p, 2)
	assert.True(t, p.MatchAny("Sauce", "huile d'arachide"))
	assert.True(t, p.MatchAny("creme anglaise"))
	assert.False(t, p.MatchAny("lait", ""))
	assert.False(t, Compile(nil).MatchAny("anything"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "viande_rouge", Key(" Viande Rouge "))
	assert.Equal(t, "vegetarien", Key("Végétarien"))
}
