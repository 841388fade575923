package catalog

import (
	"fmt"

	"idleduelist/internal/models"
)

// abilities catalogue statique, chargé au démarrage et validé une fois.
// Les magnitudes sont des données, pas des constantes de code : les
// équilibrages se font ici sans toucher au simulateur.
var abilities = map[string]*models.Ability{
	// --- The Radiant Order ---
	"divine_strike": {
		ID: "divine_strike", Name: "Divine Strike",
		Category: models.CategoryDamage, Cooldown: 2, Target: models.TargetOpponent,
		Damage: &models.DamageParams{Magnitude: 1.6, Scaling: models.ScaleSpellPower},
	},
	"shield_of_faith": {
		ID: "shield_of_faith", Name: "Shield of Faith",
		Category: models.CategoryBuff, Cooldown: 4, Target: models.TargetSelf,
		// Magnitude = fraction de dégâts absorbée tant que le bouclier tient
		Buff: &models.BuffParams{Status: models.StatusSpec{Kind: models.StatusShield, Duration: 2, Magnitude: 0.8}},
	},
	"healing_light": {
		ID: "healing_light", Name: "Healing Light",
		Category: models.CategoryHeal, Cooldown: 3, Target: models.TargetSelf,
		Heal: &models.HealParams{Magnitude: 1.2, Scaling: models.ScaleSpellPower},
	},
	"judgement": {
		ID: "judgement", Name: "Judgement",
		Category: models.CategoryDebuff, Cooldown: 3, Target: models.TargetOpponent,
		Debuff: &models.DebuffParams{Status: models.StatusSpec{Kind: models.StatusWeakened, Duration: 2, Magnitude: 0.25}},
	},
	"consecration": {
		ID: "consecration", Name: "Consecration",
		Category: models.CategoryDamage, Cooldown: 3, Target: models.TargetOpponent,
		Damage: &models.DamageParams{
			Magnitude: 1.1, Scaling: models.ScaleSpellPower,
			OnHitStatus: &models.StatusSpec{Kind: models.StatusRegen, Duration: 2, Magnitude: 0.04},
		},
	},
	"wrath_of_dawn": {
		ID: "wrath_of_dawn", Name: "Wrath of Dawn",
		Category: models.CategoryControl, Cooldown: 5, Target: models.TargetOpponent,
		Control: &models.ControlParams{Status: models.StatusSpec{Kind: models.StatusStun, Duration: 1, Magnitude: 0}},
	},

	// --- The Veiled Shadow ---
	"poison_blade": {
		ID: "poison_blade", Name: "Poison Blade",
		Category: models.CategoryDamage, Cooldown: 2, Target: models.TargetOpponent,
		Damage: &models.DamageParams{
			Magnitude: 1.2, Scaling: models.ScaleAttackPower,
			OnHitStatus: &models.StatusSpec{Kind: models.StatusPoison, Duration: 3, Magnitude: 0.05},
		},
	},
	"shadow_step": {
		ID: "shadow_step", Name: "Shadow Step",
		Category: models.CategoryBuff, Cooldown: 4, Target: models.TargetSelf,
		Buff: &models.BuffParams{Status: models.StatusSpec{Kind: models.StatusInvisible, Duration: 1, Magnitude: 0}},
	},
	"garrote": {
		ID: "garrote", Name: "Garrote",
		Category: models.CategoryDamage, Cooldown: 3, Target: models.TargetOpponent,
		RequiresInvisible: true,
		Damage: &models.DamageParams{
			Magnitude: 2.2, Scaling: models.ScaleAttackPower,
			OnHitStatus: &models.StatusSpec{Kind: models.StatusBleed, Duration: 2, Magnitude: 0.06},
		},
	},
	"crippling_dart": {
		ID: "crippling_dart", Name: "Crippling Dart",
		Category: models.CategoryControl, Cooldown: 3, Target: models.TargetOpponent,
		Control: &models.ControlParams{Status: models.StatusSpec{Kind: models.StatusSlow, Duration: 2, Magnitude: 0}},
	},
	"assassinate": {
		ID: "assassinate", Name: "Assassinate",
		Category: models.CategoryExecute, Cooldown: 5, Target: models.TargetOpponent,
		// Mise à mort sous 30% de vie, sinon dégâts normaux
		Execute: &models.ExecuteParams{Threshold: 0.30, Magnitude: 1.4, Scaling: models.ScaleAttackPower},
	},
	"night_terror": {
		ID: "night_terror", Name: "Night Terror",
		Category: models.CategoryDebuff, Cooldown: 4, Target: models.TargetOpponent,
		RequiresTargetStatus: models.StatusPoison,
		Debuff: &models.DebuffParams{Status: models.StatusSpec{Kind: models.StatusWeakened, Duration: 3, Magnitude: 0.35}},
	},

	// --- The Untamed Wild ---
	"thorn_lash": {
		ID: "thorn_lash", Name: "Thorn Lash",
		Category: models.CategoryDamage, Cooldown: 2, Target: models.TargetOpponent,
		Damage: &models.DamageParams{
			Magnitude: 1.3, Scaling: models.ScaleAttackPower,
			OnHitStatus: &models.StatusSpec{Kind: models.StatusBleed, Duration: 2, Magnitude: 0.04},
		},
	},
	"wild_growth": {
		ID: "wild_growth", Name: "Wild Growth",
		Category: models.CategoryHeal, Cooldown: 3, Target: models.TargetSelf,
		Heal: &models.HealParams{
			Magnitude: 0.8, Scaling: models.ScaleSpellPower,
			Status: &models.StatusSpec{Kind: models.StatusRegen, Duration: 3, Magnitude: 0.05},
		},
	},
	"primal_roar": {
		ID: "primal_roar", Name: "Primal Roar",
		Category: models.CategoryDebuff, Cooldown: 3, Target: models.TargetOpponent,
		Debuff: &models.DebuffParams{Status: models.StatusSpec{Kind: models.StatusWeakened, Duration: 2, Magnitude: 0.2}},
	},
	"stampede": {
		ID: "stampede", Name: "Stampede",
		Category: models.CategoryControl, Cooldown: 5, Target: models.TargetOpponent,
		Control: &models.ControlParams{Status: models.StatusSpec{Kind: models.StatusRoot, Duration: 2, Magnitude: 0}},
	},
	"feral_rend": {
		ID: "feral_rend", Name: "Feral Rend",
		Category: models.CategoryDamage, Cooldown: 3, Target: models.TargetOpponent,
		RequiresTargetStatus: models.StatusBleed,
		Damage: &models.DamageParams{Magnitude: 2.0, Scaling: models.ScaleAttackPower},
	},
	"spirit_of_the_pack": {
		ID: "spirit_of_the_pack", Name: "Spirit of the Pack",
		Category: models.CategoryBuff, Cooldown: 4, Target: models.TargetSelf,
		Buff: &models.BuffParams{Status: models.StatusSpec{Kind: models.StatusEmpowered, Duration: 2, Magnitude: 0.3}},
	},
}

// GetAbility retourne une capacité du catalogue
func GetAbility(id string) (*models.Ability, bool) {
	a, ok := abilities[id]
	return a, ok
}

// Abilities retourne l'intégralité du catalogue
func Abilities() map[string]*models.Ability {
	return abilities
}

// ValidateCatalog vérifie la cohérence du catalogue au démarrage :
// chaque capacité référencée par une faction existe et porte exactement
// le bloc de paramètres de sa catégorie.
func ValidateCatalog() error {
	for _, info := range factions {
		if len(info.AbilityOrder) != len(info.UnlockLevels) {
			return fmt.Errorf("faction %s: ability order and unlock levels mismatch", info.ID)
		}
		for _, id := range info.AbilityOrder {
			ability, ok := abilities[id]
			if !ok {
				return fmt.Errorf("faction %s references unknown ability %q", info.ID, id)
			}
			if err := validateAbility(ability); err != nil {
				return fmt.Errorf("ability %q: %w", id, err)
			}
		}
	}
	for id, enemy := range enemies {
		for _, abilityID := range enemy.Abilities {
			if _, ok := abilities[abilityID]; !ok {
				return fmt.Errorf("enemy %q references unknown ability %q", id, abilityID)
			}
		}
	}
	return nil
}

// validateAbility vérifie qu'exactement un bloc de paramètres est présent
func validateAbility(a *models.Ability) error {
	count := 0
	var expected bool
	if a.Damage != nil {
		count++
		expected = a.Category == models.CategoryDamage
	}
	if a.Heal != nil {
		count++
		expected = a.Category == models.CategoryHeal
	}
	if a.Buff != nil {
		count++
		expected = a.Category == models.CategoryBuff
	}
	if a.Debuff != nil {
		count++
		expected = a.Category == models.CategoryDebuff
	}
	if a.Control != nil {
		count++
		expected = a.Category == models.CategoryControl
	}
	if a.Execute != nil {
		count++
		expected = a.Category == models.CategoryExecute
	}
	if count != 1 {
		return fmt.Errorf("expected exactly one parameter block, got %d", count)
	}
	if !expected {
		return fmt.Errorf("parameter block does not match category %s", a.Category)
	}
	if a.Cooldown < 0 {
		return fmt.Errorf("negative cooldown")
	}
	return nil
}
