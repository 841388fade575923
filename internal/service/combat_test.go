package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/catalog"
	"idleduelist/internal/models"
)

func testParticipant(name string, faction models.Faction, stats models.DerivedStats, abilities ...string) *models.Participant {
	return &models.Participant{
		CharacterID: uuid.New(),
		Name:        name,
		Faction:     faction,
		Level:       10,
		Stats:       stats,
		Armed:       true,
		Abilities:   abilities,
	}
}

func flatStats(maxHP, attack, defense, speed int) models.DerivedStats {
	return models.DerivedStats{
		MaxHP:          maxHP,
		AttackPower:    attack,
		SpellPower:     attack,
		Defense:        defense,
		CritMultiplier: 1.5,
		Speed:          speed,
	}
}

func newTestCombat(t *testing.T, a, b *models.Participant) *models.CombatState {
	t.Helper()
	s := NewCombat(uuid.New(), models.ModePvP, a.CharacterID, a, b, 1700000000)
	require.Equal(t, models.CombatOngoing, s.Status)
	require.Equal(t, 1, s.Turn)
	return s
}

// step joue l'action du participant courant, quelle qu'elle soit
func step(t *testing.T, s *models.CombatState, action models.Action) {
	t.Helper()
	require.NoError(t, ResolveAction(s, ParticipantKey(s.Current()), action))
}

func TestNewCombat_InitiativeOrder(t *testing.T) {
	fast := testParticipant("fast", models.FactionShadow, flatStats(100, 10, 0, 50))
	slow := testParticipant("slow", models.FactionOrder, flatStats(100, 10, 0, 10))

	s := newTestCombat(t, slow, fast)
	assert.Equal(t, 1, s.CurrentIdx, "higher speed acts first")

	// égalité de vitesse : l'attaquant (index 0) commence
	tie := NewCombat(uuid.New(), models.ModePvP, slow.CharacterID,
		testParticipant("a", models.FactionOrder, flatStats(100, 10, 0, 20)),
		testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 20)), 1700000000)
	assert.Equal(t, 0, tie.CurrentIdx)
}

func TestResolveAction_Determinism(t *testing.T) {
	run := func() *models.CombatState {
		a := testParticipant("alice", models.FactionOrder, models.DerivedStats{
			MaxHP: 150, AttackPower: 30, SpellPower: 25, Defense: 5,
			CritChance: 0.15, CritMultiplier: 1.5, DodgeChance: 0.1,
			Accuracy: 0.1, Speed: 30,
		}, "divine_strike")
		b := testParticipant("bob", models.FactionOrder, models.DerivedStats{
			MaxHP: 180, AttackPower: 20, Defense: 12,
			CritChance: 0.05, CritMultiplier: 1.5, DodgeChance: 0.08,
			Accuracy: 0.05, Speed: 10,
		})
		s := NewCombat(uuid.MustParse("deadbeef-0000-0000-0000-000000000042"),
			models.ModePvP, a.CharacterID, a, b, 1700000000)

		actions := []models.Action{
			{Type: models.ActionAttack},
			{Type: models.ActionAttack},
			{Type: models.ActionAbility, AbilityID: "divine_strike"},
			{Type: models.ActionAttack},
			{Type: models.ActionDefend},
			{Type: models.ActionAttack},
		}
		for _, action := range actions {
			if s.IsTerminal() {
				break
			}
			if action.Type == models.ActionAbility && ParticipantKey(s.Current()) != ParticipantKey(s.Participants[0]) {
				action = models.Action{Type: models.ActionAttack}
			}
			step(t, s, action)
		}
		return s
	}

	first := run()
	second := run()

	// les horodatages sont le seul champ non déterministe
	neutralize := func(s *models.CombatState) {
		s.CreatedAt, s.UpdatedAt = time.Time{}, time.Time{}
		s.OwnerID = uuid.Nil
		s.Participants[0].CharacterID = uuid.Nil
		s.Participants[1].CharacterID = uuid.Nil
		for i := range s.Log {
			s.Log[i].Actor, s.Log[i].Target = "", ""
		}
	}
	neutralize(first)
	neutralize(second)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON), "same seed and actions give byte-identical state")
}

func TestResolveAction_WrongTurnRejected(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(100, 10, 0, 30))
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	err := ResolveAction(s, ParticipantKey(b), models.Action{Type: models.ActionAttack})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
	assert.Equal(t, 1, s.Turn, "invalid action leaves state unchanged")
	assert.Empty(t, s.Log)
}

func TestResolveAction_CooldownEnforced(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(500, 10, 0, 30), "divine_strike")
	b := testParticipant("b", models.FactionOrder, flatStats(500, 10, 0, 10))
	s := newTestCombat(t, a, b)

	step(t, s, models.Action{Type: models.ActionAbility, AbilityID: "divine_strike"})
	usedAt := 1
	assert.Greater(t, a.Cooldowns["divine_strike"], 0)

	// le tour revient à a avec le cooldown encore actif
	step(t, s, models.Action{Type: models.ActionAttack})
	require.Equal(t, ParticipantKey(a), ParticipantKey(s.Current()))
	err := ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAbility, AbilityID: "divine_strike"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
	assert.GreaterOrEqual(t, s.Turn, usedAt+2)
}

func TestResolveAction_ExecuteThreshold(t *testing.T) {
	a := testParticipant("killer", models.FactionShadow, flatStats(100, 30, 0, 30), "assassinate")
	b := testParticipant("victim", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	// cible à 27% de vie : sous le seuil de 30%
	b.HP = 27

	step(t, s, models.Action{Type: models.ActionAbility, AbilityID: "assassinate"})

	require.True(t, s.IsTerminal())
	assert.Equal(t, models.ReasonExecute, s.Reason)
	require.NotNil(t, s.WinnerIdx)
	assert.Equal(t, 0, *s.WinnerIdx)
	assert.Equal(t, 0, b.HP)
}

func TestResolveAction_ExecuteAboveThresholdFallsThrough(t *testing.T) {
	a := testParticipant("killer", models.FactionShadow, models.DerivedStats{
		MaxHP: 100, AttackPower: 30, CritMultiplier: 1.5, Accuracy: 0.5, Speed: 30,
	}, "assassinate")
	b := testParticipant("victim", models.FactionOrder, flatStats(1000, 10, 0, 10))
	s := newTestCombat(t, a, b)

	step(t, s, models.Action{Type: models.ActionAbility, AbilityID: "assassinate"})

	assert.False(t, s.IsTerminal(), "above threshold, execute deals normal damage")
	assert.Less(t, b.HP, b.MaxHP)
	assert.Equal(t, models.CombatOngoing, s.Status)
}

func TestResolveAction_TurnCap(t *testing.T) {
	// dégâts 1 contre défense 50 : personne ne peut tuer
	a := testParticipant("a", models.FactionOrder, models.DerivedStats{
		MaxHP: 10000, AttackPower: 1, Defense: 50, CritMultiplier: 1.5, Accuracy: 1, Speed: 30,
	})
	b := testParticipant("b", models.FactionOrder, models.DerivedStats{
		MaxHP: 10000, AttackPower: 1, Defense: 50, CritMultiplier: 1.5, Accuracy: 1, Speed: 10,
	})
	s := newTestCombat(t, a, b)

	for !s.IsTerminal() {
		step(t, s, models.Action{Type: models.ActionAttack})
	}

	assert.Equal(t, models.ReasonTurnCap, s.Reason)
	assert.Greater(t, s.Turn, MaxCombatTurns)
	require.NotNil(t, s.WinnerIdx)
	// les deux sont vivants : le vainqueur a le meilleur ratio de vie,
	// égalité pour l'attaquant
	winner, loser := s.Winner(), s.Loser()
	assert.Positive(t, loser.HP)
	assert.GreaterOrEqual(t, winner.HPRatio(), loser.HPRatio())
}

func TestResolveAction_ConfiguredTurnCap(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, models.DerivedStats{
		MaxHP: 10000, AttackPower: 1, Defense: 50, CritMultiplier: 1.5, Accuracy: 1, Speed: 30,
	})
	b := testParticipant("b", models.FactionOrder, models.DerivedStats{
		MaxHP: 10000, AttackPower: 1, Defense: 50, CritMultiplier: 1.5, Accuracy: 1, Speed: 10,
	})
	s := newTestCombat(t, a, b)
	s.TurnCap = 5

	for !s.IsTerminal() {
		step(t, s, models.Action{Type: models.ActionAttack})
	}

	assert.Equal(t, models.ReasonTurnCap, s.Reason)
	assert.Greater(t, s.Turn, 5)
	assert.Less(t, s.Turn, MaxCombatTurns, "configured cap overrides the default ceiling")
}

func TestResolveAction_StunBlocksAttackButNotDefend(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(100, 10, 0, 30))
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	a.Statuses = append(a.Statuses, models.StatusEffect{Kind: models.StatusStun, Duration: 2})

	err := ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAttack})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	// se défendre reste permis : pas d'impasse sous étourdissement
	require.NoError(t, ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionDefend}))
}

func TestResolveAction_SlowBlocksOnlyAbilities(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(500, 10, 0, 30), "divine_strike")
	b := testParticipant("b", models.FactionOrder, flatStats(500, 10, 0, 10))
	s := newTestCombat(t, a, b)

	a.Statuses = append(a.Statuses, models.StatusEffect{Kind: models.StatusSlow, Duration: 2})

	err := ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAbility, AbilityID: "divine_strike"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	require.NoError(t, ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAttack}))
}

func TestResolveAction_PoisonTicksBeforeAction(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(100, 10, 0, 30))
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	a.Statuses = append(a.Statuses, models.StatusEffect{Kind: models.StatusPoison, Duration: 3, Magnitude: 0.05})

	hpBefore := a.HP
	step(t, s, models.Action{Type: models.ActionDefend})
	assert.Less(t, a.HP, hpBefore, "poison damage lands before the action resolves")
	require.NotEmpty(t, s.Log)
	assert.Equal(t, "status_tick", s.Log[0].Kind)
}

func TestResolveAction_PoisonCanKillActor(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, flatStats(100, 10, 0, 30))
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	a.HP = 2
	a.Statuses = append(a.Statuses, models.StatusEffect{Kind: models.StatusPoison, Duration: 3, Magnitude: 0.10})

	step(t, s, models.Action{Type: models.ActionAttack})

	require.True(t, s.IsTerminal())
	assert.Equal(t, models.ReasonKill, s.Reason)
	assert.Equal(t, 1, *s.WinnerIdx, "the poisoned actor dies before acting")
}

func TestResolveAction_ShieldAbsorbs(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, models.DerivedStats{
		MaxHP: 100, AttackPower: 50, CritMultiplier: 1.5, Accuracy: 1, Speed: 30,
	})
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	b.Statuses = append(b.Statuses, models.StatusEffect{Kind: models.StatusShield, Duration: 2, Magnitude: 0.8})

	step(t, s, models.Action{Type: models.ActionAttack})

	taken := 100 - b.HP
	assert.LessOrEqual(t, taken, 11, "80%% of the hit is absorbed")
}

func TestResolveAction_HPBounds(t *testing.T) {
	a := testParticipant("a", models.FactionOrder, models.DerivedStats{
		MaxHP: 50, AttackPower: 500, CritMultiplier: 1.5, Accuracy: 1, LifestealPct: 0.3, Speed: 30,
	})
	b := testParticipant("b", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, a, b)

	step(t, s, models.Action{Type: models.ActionAttack})

	assert.GreaterOrEqual(t, b.HP, 0)
	assert.LessOrEqual(t, a.HP, a.MaxHP, "lifesteal never overheals")
	require.True(t, s.IsTerminal())
	assert.Equal(t, models.ReasonKill, s.Reason)
	assert.Equal(t, 0, s.Loser().HP)
}

func TestResolveAction_InvisibilityPredicates(t *testing.T) {
	a := testParticipant("a", models.FactionShadow, flatStats(100, 30, 0, 30), "garrote")
	b := testParticipant("b", models.FactionOrder, flatStats(500, 10, 0, 10))
	s := newTestCombat(t, a, b)

	err := ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAbility, AbilityID: "garrote"})
	require.Error(t, err, "garrote requires invisibility")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	a.Statuses = append(a.Statuses, models.StatusEffect{Kind: models.StatusInvisible, Duration: 2})
	require.NoError(t, ResolveAction(s, ParticipantKey(a), models.Action{Type: models.ActionAbility, AbilityID: "garrote"}))
	assert.False(t, a.HasStatus(models.StatusInvisible), "striking from the shadows breaks invisibility")
}

func TestBotAction_PrefersAbilityThenAttack(t *testing.T) {
	bot := testParticipant("bot", models.FactionOrder, flatStats(100, 10, 0, 30), "divine_strike")
	bot.EnemyID = "bot_shadow"
	player := testParticipant("p", models.FactionOrder, flatStats(100, 10, 0, 10))
	s := newTestCombat(t, bot, player)

	action := BotAction(s)
	assert.Equal(t, models.ActionAbility, action.Type)
	assert.Equal(t, "divine_strike", action.AbilityID)

	bot.Cooldowns["divine_strike"] = 2
	action = BotAction(s)
	assert.Equal(t, models.ActionAttack, action.Type)

	bot.Statuses = append(bot.Statuses, models.StatusEffect{Kind: models.StatusStun, Duration: 2})
	action = BotAction(s)
	assert.Equal(t, models.ActionDefend, action.Type)
}

func TestCatalogIsInternallyConsistent(t *testing.T) {
	assert.NoError(t, catalog.ValidateCatalog())
}
