package catalog

import "idleduelist/internal/models"

// factions catalogue statique des trois factions.
// AbilityOrder suit l'ordre des paliers de déblocage (UnlockLevels).
var factions = map[models.Faction]*models.FactionInfo{
	models.FactionOrder: {
		ID:          models.FactionOrder,
		Name:        "The Radiant Order",
		Description: "Holy warriors favoring resilience, healing and divine judgment.",
		AbilityOrder: []string{
			"divine_strike", "shield_of_faith", "healing_light",
			"judgement", "consecration", "wrath_of_dawn",
		},
		UnlockLevels: []int{1, 1, 5, 12, 25, 40},
	},
	models.FactionShadow: {
		ID:          models.FactionShadow,
		Name:        "The Veiled Shadow",
		Description: "Assassins trading defense for burst, poisons and executions.",
		AbilityOrder: []string{
			"poison_blade", "shadow_step", "garrote",
			"crippling_dart", "assassinate", "night_terror",
		},
		UnlockLevels: []int{1, 1, 5, 12, 25, 40},
	},
	models.FactionWild: {
		ID:          models.FactionWild,
		Name:        "The Untamed Wild",
		Description: "Primal fighters sustained by regeneration and raw fury.",
		AbilityOrder: []string{
			"thorn_lash", "wild_growth", "primal_roar",
			"stampede", "feral_rend", "spirit_of_the_pack",
		},
		UnlockLevels: []int{1, 1, 5, 12, 25, 40},
	},
}

// GetFaction retourne une faction du catalogue
func GetFaction(id models.Faction) (*models.FactionInfo, bool) {
	f, ok := factions[id]
	return f, ok
}

// Factions retourne le catalogue complet des factions
func Factions() []*models.FactionInfo {
	return []*models.FactionInfo{
		factions[models.FactionOrder],
		factions[models.FactionShadow],
		factions[models.FactionWild],
	}
}

// LearnedAbilities retourne les capacités apprises à un niveau donné
func LearnedAbilities(faction models.Faction, level int) []string {
	info, ok := factions[faction]
	if !ok {
		return nil
	}
	var learned []string
	for i, abilityID := range info.AbilityOrder {
		if i < len(info.UnlockLevels) && level >= info.UnlockLevels[i] {
			learned = append(learned, abilityID)
		}
	}
	if len(learned) > models.LearnedAbilityCap {
		learned = learned[:models.LearnedAbilityCap]
	}
	return learned
}

// ActiveAbilities retourne le set actif embarqué en combat : la capacité
// signature (première apprise) plus les trois plus récentes.
func ActiveAbilities(faction models.Faction, level int) []string {
	learned := LearnedAbilities(faction, level)
	if len(learned) <= models.ActiveAbilityCount {
		return learned
	}
	active := []string{learned[0]}
	active = append(active, learned[len(learned)-(models.ActiveAbilityCount-1):]...)
	return active
}
