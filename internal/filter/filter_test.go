package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

func names(battles []core.Battle) []string {
	out := make([]string, len(battles))
	for i, b := range battles {
		out[i] = b.Name
	}
	return out
}

func TestApply_PrefixSemantics(t *testing.T) {
	records := []core.Battle{
		{ID: 1, Name: "Battle of Paris", Year: 1814},
		{ID: 2, Name: "Siege of Paris", Year: 1870},
	}

	assert.Equal(t, []string{"Battle of Paris"}, names(Apply("Battle", records)))
	assert.Equal(t, []string{"Battle of Paris", "Siege of Paris"}, names(Apply(All, records)))
}

func TestApply_NotSubstringNotExact(t *testing.T) {
	records := []core.Battle{
		{Name: "Grande Bataille de la Marne"},
		{Name: "Bataille"},
		{Name: "Bataille de Valmy"},
	}

	assert.Equal(t, []string{"Bataille", "Bataille de Valmy"}, names(Apply("Bataille", records)))
}

func TestApply_CaseSensitive(t *testing.T) {
	records := []core.Battle{{Name: "siège de Paris"}, {Name: "Siège d'Orléans"}}

	assert.Equal(t, []string{"Siège d'Orléans"}, names(Apply("Siège", records)))
}

func TestApply_Idempotent(t *testing.T) {
	records := []core.Battle{
		{ID: 1, Name: "Bataille de Poitiers"},
		{ID: 2, Name: "Siège de La Rochelle"},
		{ID: 3, Name: "Bataille de Crécy"},
	}

	once := Apply("Bataille", records)
	twice := Apply("Bataille", once)

	assert.Equal(t, once, twice)
}

func TestApply_DoesNotAlias(t *testing.T) {
	records := []core.Battle{{Name: "Assaut de Constantinople"}}

	visible := Apply(All, records)
	visible[0].Name = "changed"

	assert.Equal(t, "Assaut de Constantinople", records[0].Name)
}

func TestApply_Empty(t *testing.T) {
	assert.Empty(t, Apply(All, nil))
	assert.Empty(t, Apply("Escarmouche", []core.Battle{{Name: "Bataille de Fontenoy"}}))
}
