package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"idleduelist/internal/models"
)

func TestDeriveStats_Deterministic(t *testing.T) {
	base := models.StatVector{Might: 40, Finesse: 25, Fortitude: 30, Arcana: 10, Insight: 15, Presence: 20}

	first := DeriveStats(base, 12, nil)
	second := DeriveStats(base, 12, nil)
	assert.Equal(t, first, second)
}

func TestDeriveStats_OnlyMountedEquipmentCounts(t *testing.T) {
	base := models.StatVector{Might: 10}
	slot := models.SlotWeapon

	mounted := &models.Equipment{
		Type:        models.TypeSword,
		Modifiers:   models.StatVector{Might: 20},
		MountedSlot: &slot,
	}
	inventory := &models.Equipment{
		Type:      models.TypeAxe,
		Modifiers: models.StatVector{Might: 100},
	}

	bare := DeriveStats(base, 1, nil)
	geared := DeriveStats(base, 1, []*models.Equipment{mounted, inventory})

	// monté compte, inventaire non
	expectedGain := defaultCoefficients.AttackPerMight * 20
	assert.Equal(t, bare.AttackPower+expectedGain, geared.AttackPower)
}

func TestDeriveStats_CapsRespected(t *testing.T) {
	huge := models.StatVector{Might: 300, Finesse: 300, Fortitude: 300, Arcana: 300, Insight: 300, Presence: 300}
	d := DeriveStats(huge, 100, nil)

	assert.LessOrEqual(t, d.DodgeChance, 0.40)
	assert.LessOrEqual(t, d.CooldownReductionPct, 0.50)
	assert.LessOrEqual(t, d.CritChance, 0.75)
	assert.LessOrEqual(t, d.ParryChance, 0.35)
	assert.LessOrEqual(t, d.ArmorPen, 0.60)
	assert.LessOrEqual(t, d.HPRegenPct, 0.05)
	assert.LessOrEqual(t, d.LifestealPct, 0.30)
}

func TestDeriveStats_Int32SafeAtMaximums(t *testing.T) {
	huge := models.StatVector{Might: 300, Finesse: 300, Fortitude: 300, Arcana: 300, Insight: 300, Presence: 300}
	d := DeriveStats(huge, 100, nil)

	// tous les entiers dérivés tiennent largement en int32 signé
	assert.Less(t, d.MaxHP, 1<<31-1)
	assert.Positive(t, d.MaxHP)
	assert.Positive(t, d.AttackPower)
	assert.Positive(t, d.Speed)
}

func TestDeriveStats_Breakpoints(t *testing.T) {
	base := models.StatVector{Might: 100, Finesse: 49}
	d := DeriveStats(base, 10, nil)

	assert.True(t, d.HasPassive("crushing_blows"))
	assert.True(t, d.HasPassive("overwhelming_force"))
	assert.False(t, d.HasPassive("titan_grip"))
	assert.False(t, d.HasPassive("fleet_footed"))
}

func TestDeriveStats_CritMultiplierScalesWithInsight(t *testing.T) {
	noInsight := DeriveStats(models.StatVector{}, 1, nil)
	assert.InDelta(t, 1.5, noInsight.CritMultiplier, 1e-9)

	twoBreaks := DeriveStats(models.StatVector{Insight: 100}, 1, nil)
	assert.InDelta(t, 2.0, twoBreaks.CritMultiplier, 1e-9)
}
