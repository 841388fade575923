package catalog

import (
	"sort"

	"idleduelist/internal/models"
)

// Enemy entrée du catalogue statique des ennemis PvE
type Enemy struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Level     int                `json:"level"`
	Faction   models.Faction     `json:"faction"`
	BaseStats models.StatVector  `json:"base_stats"`
	Abilities []string           `json:"abilities"`
	Reward    RewardTable        `json:"reward"`
}

// RewardTable table de récompenses d'un ennemi
type RewardTable struct {
	XP         int64   `json:"xp"`
	Gold       int64   `json:"gold"`
	DropChance float64 `json:"drop_chance"`
	// Poids de tirage par rareté (les absents ne droppent pas)
	RarityWeights map[models.Rarity]int `json:"rarity_weights"`
}

// weights partagés par palier de difficulté
var (
	trashWeights = map[models.Rarity]int{models.RarityCommon: 80, models.RarityUncommon: 20}
	eliteWeights = map[models.Rarity]int{models.RarityCommon: 40, models.RarityUncommon: 40, models.RarityRare: 20}
	bossWeights  = map[models.Rarity]int{models.RarityUncommon: 30, models.RarityRare: 45, models.RarityEpic: 25}
	raidWeights  = map[models.Rarity]int{models.RarityRare: 40, models.RarityEpic: 40, models.RarityLegendary: 18, models.RarityMythic: 2}
)

// enemies catalogue statique, indexé par enemy_id
var enemies = map[string]*Enemy{
	// Palier 1 — plaines (niv 1-10)
	"giant_rat":       {ID: "giant_rat", Name: "Giant Rat", Level: 1, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 2, Finesse: 4, Fortitude: 2}, Abilities: []string{"thorn_lash"}, Reward: RewardTable{XP: 25, Gold: 5, DropChance: 0.10, RarityWeights: trashWeights}},
	"cave_bat":        {ID: "cave_bat", Name: "Cave Bat", Level: 2, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 2, Finesse: 6, Fortitude: 2}, Abilities: []string{"thorn_lash"}, Reward: RewardTable{XP: 35, Gold: 8, DropChance: 0.10, RarityWeights: trashWeights}},
	"young_boar":      {ID: "young_boar", Name: "Young Boar", Level: 3, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 6, Finesse: 2, Fortitude: 5}, Abilities: []string{"stampede"}, Reward: RewardTable{XP: 50, Gold: 10, DropChance: 0.12, RarityWeights: trashWeights}},
	"bandit_scout":    {ID: "bandit_scout", Name: "Bandit Scout", Level: 4, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 5, Finesse: 7, Fortitude: 3}, Abilities: []string{"poison_blade"}, Reward: RewardTable{XP: 70, Gold: 15, DropChance: 0.15, RarityWeights: trashWeights}},
	"wolf":            {ID: "wolf", Name: "Grey Wolf", Level: 5, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 8, Finesse: 8, Fortitude: 4}, Abilities: []string{"thorn_lash", "feral_rend"}, Reward: RewardTable{XP: 90, Gold: 18, DropChance: 0.15, RarityWeights: trashWeights}},
	"bandit_thug":     {ID: "bandit_thug", Name: "Bandit Thug", Level: 7, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 12, Finesse: 6, Fortitude: 8}, Abilities: []string{"poison_blade", "crippling_dart"}, Reward: RewardTable{XP: 130, Gold: 25, DropChance: 0.18, RarityWeights: trashWeights}},
	"alpha_wolf":      {ID: "alpha_wolf", Name: "Alpha Wolf", Level: 9, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 16, Finesse: 12, Fortitude: 8, Presence: 4}, Abilities: []string{"thorn_lash", "feral_rend", "primal_roar"}, Reward: RewardTable{XP: 200, Gold: 40, DropChance: 0.25, RarityWeights: eliteWeights}},

	// Palier 2 — forêt maudite (niv 10-25)
	"twisted_sapling": {ID: "twisted_sapling", Name: "Twisted Sapling", Level: 11, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 14, Fortitude: 18, Arcana: 6}, Abilities: []string{"thorn_lash", "wild_growth"}, Reward: RewardTable{XP: 260, Gold: 45, DropChance: 0.18, RarityWeights: trashWeights}},
	"marsh_hag":       {ID: "marsh_hag", Name: "Marsh Hag", Level: 13, Faction: models.FactionShadow, BaseStats: models.StatVector{Arcana: 22, Insight: 10, Fortitude: 10}, Abilities: []string{"poison_blade", "night_terror"}, Reward: RewardTable{XP: 320, Gold: 55, DropChance: 0.20, RarityWeights: eliteWeights}},
	"cursed_knight":   {ID: "cursed_knight", Name: "Cursed Knight", Level: 15, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 22, Fortitude: 22, Presence: 6}, Abilities: []string{"divine_strike", "shield_of_faith"}, Reward: RewardTable{XP: 400, Gold: 70, DropChance: 0.22, RarityWeights: eliteWeights}},
	"shadow_stalker":  {ID: "shadow_stalker", Name: "Shadow Stalker", Level: 17, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 18, Finesse: 28, Insight: 10}, Abilities: []string{"shadow_step", "garrote"}, Reward: RewardTable{XP: 480, Gold: 85, DropChance: 0.22, RarityWeights: eliteWeights}},
	"dire_bear":       {ID: "dire_bear", Name: "Dire Bear", Level: 19, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 34, Fortitude: 28}, Abilities: []string{"stampede", "feral_rend"}, Reward: RewardTable{XP: 560, Gold: 95, DropChance: 0.25, RarityWeights: eliteWeights}},
	"forest_warden":   {ID: "forest_warden", Name: "Forest Warden", Level: 22, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 30, Fortitude: 32, Arcana: 16, Presence: 10}, Abilities: []string{"thorn_lash", "wild_growth", "primal_roar", "stampede"}, Reward: RewardTable{XP: 750, Gold: 140, DropChance: 0.40, RarityWeights: bossWeights}},

	// Palier 3 — cryptes (niv 25-45)
	"skeleton_soldier": {ID: "skeleton_soldier", Name: "Skeleton Soldier", Level: 26, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 36, Fortitude: 30}, Abilities: []string{"divine_strike"}, Reward: RewardTable{XP: 850, Gold: 130, DropChance: 0.18, RarityWeights: eliteWeights}},
	"plague_rat_king": {ID: "plague_rat_king", Name: "Plague Rat King", Level: 28, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 30, Finesse: 34, Fortitude: 24}, Abilities: []string{"poison_blade", "night_terror"}, Reward: RewardTable{XP: 950, Gold: 150, DropChance: 0.22, RarityWeights: eliteWeights}},
	"crypt_wraith":    {ID: "crypt_wraith", Name: "Crypt Wraith", Level: 31, Faction: models.FactionShadow, BaseStats: models.StatVector{Arcana: 48, Insight: 22, Finesse: 20}, Abilities: []string{"shadow_step", "garrote", "night_terror"}, Reward: RewardTable{XP: 1100, Gold: 170, DropChance: 0.25, RarityWeights: eliteWeights}},
	"bone_golem":      {ID: "bone_golem", Name: "Bone Golem", Level: 34, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 52, Fortitude: 58}, Abilities: []string{"divine_strike", "shield_of_faith"}, Reward: RewardTable{XP: 1300, Gold: 200, DropChance: 0.28, RarityWeights: eliteWeights}},
	"death_priest":    {ID: "death_priest", Name: "Death Priest", Level: 38, Faction: models.FactionOrder, BaseStats: models.StatVector{Arcana: 60, Insight: 30, Presence: 24, Fortitude: 26}, Abilities: []string{"divine_strike", "healing_light", "judgement"}, Reward: RewardTable{XP: 1600, Gold: 250, DropChance: 0.30, RarityWeights: eliteWeights}},
	"crypt_lord":      {ID: "crypt_lord", Name: "The Crypt Lord", Level: 42, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 60, Finesse: 40, Fortitude: 50, Arcana: 30, Insight: 20}, Abilities: []string{"poison_blade", "garrote", "assassinate", "night_terror"}, Reward: RewardTable{XP: 2200, Gold: 400, DropChance: 0.50, RarityWeights: bossWeights}},

	// Palier 4 — pics gelés (niv 45-70)
	"frost_harpy":     {ID: "frost_harpy", Name: "Frost Harpy", Level: 47, Faction: models.FactionWild, BaseStats: models.StatVector{Finesse: 70, Might: 40, Insight: 24}, Abilities: []string{"thorn_lash", "crippling_dart"}, Reward: RewardTable{XP: 2500, Gold: 380, DropChance: 0.22, RarityWeights: eliteWeights}},
	"ice_revenant":    {ID: "ice_revenant", Name: "Ice Revenant", Level: 51, Faction: models.FactionShadow, BaseStats: models.StatVector{Arcana: 80, Fortitude: 50, Insight: 30}, Abilities: []string{"shadow_step", "garrote", "crippling_dart"}, Reward: RewardTable{XP: 2900, Gold: 430, DropChance: 0.25, RarityWeights: eliteWeights}},
	"glacier_titan":   {ID: "glacier_titan", Name: "Glacier Titan", Level: 55, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 95, Fortitude: 100}, Abilities: []string{"stampede", "feral_rend", "primal_roar"}, Reward: RewardTable{XP: 3400, Gold: 500, DropChance: 0.28, RarityWeights: eliteWeights}},
	"storm_caller":    {ID: "storm_caller", Name: "Storm Caller", Level: 60, Faction: models.FactionWild, BaseStats: models.StatVector{Arcana: 105, Insight: 50, Presence: 35}, Abilities: []string{"wild_growth", "primal_roar", "stampede"}, Reward: RewardTable{XP: 4000, Gold: 580, DropChance: 0.30, RarityWeights: eliteWeights}},
	"frozen_monarch":  {ID: "frozen_monarch", Name: "The Frozen Monarch", Level: 65, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 90, Fortitude: 110, Arcana: 70, Insight: 45, Presence: 40}, Abilities: []string{"divine_strike", "shield_of_faith", "judgement", "wrath_of_dawn"}, Reward: RewardTable{XP: 5500, Gold: 900, DropChance: 0.55, RarityWeights: bossWeights}},

	// Palier 5 — abysses (niv 70-100)
	"void_spawn":      {ID: "void_spawn", Name: "Void Spawn", Level: 72, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 100, Finesse: 90, Arcana: 60}, Abilities: []string{"poison_blade", "garrote"}, Reward: RewardTable{XP: 6000, Gold: 850, DropChance: 0.25, RarityWeights: eliteWeights}},
	"abyssal_knight":  {ID: "abyssal_knight", Name: "Abyssal Knight", Level: 78, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 130, Fortitude: 130, Presence: 50}, Abilities: []string{"divine_strike", "shield_of_faith", "wrath_of_dawn"}, Reward: RewardTable{XP: 7200, Gold: 1000, DropChance: 0.30, RarityWeights: bossWeights}},
	"soul_devourer":   {ID: "soul_devourer", Name: "Soul Devourer", Level: 84, Faction: models.FactionShadow, BaseStats: models.StatVector{Arcana: 150, Insight: 80, Finesse: 70, Fortitude: 60}, Abilities: []string{"night_terror", "garrote", "assassinate"}, Reward: RewardTable{XP: 8500, Gold: 1200, DropChance: 0.35, RarityWeights: bossWeights}},
	"herald_of_ruin":  {ID: "herald_of_ruin", Name: "Herald of Ruin", Level: 90, Faction: models.FactionShadow, BaseStats: models.StatVector{Might: 160, Finesse: 110, Arcana: 100, Insight: 70, Fortitude: 90}, Abilities: []string{"poison_blade", "shadow_step", "assassinate", "night_terror"}, Reward: RewardTable{XP: 10500, Gold: 1600, DropChance: 0.45, RarityWeights: raidWeights}},
	"the_unmaker":     {ID: "the_unmaker", Name: "The Unmaker", Level: 95, Faction: models.FactionWild, BaseStats: models.StatVector{Might: 190, Finesse: 120, Fortitude: 160, Arcana: 120, Insight: 90, Presence: 80}, Abilities: []string{"stampede", "feral_rend", "primal_roar", "spirit_of_the_pack"}, Reward: RewardTable{XP: 14000, Gold: 2400, DropChance: 0.65, RarityWeights: raidWeights}},
	"first_flame":     {ID: "first_flame", Name: "Avatar of the First Flame", Level: 100, Faction: models.FactionOrder, BaseStats: models.StatVector{Might: 200, Finesse: 130, Fortitude: 180, Arcana: 160, Insight: 110, Presence: 100}, Abilities: []string{"divine_strike", "shield_of_faith", "judgement", "wrath_of_dawn"}, Reward: RewardTable{XP: 20000, Gold: 4000, DropChance: 0.80, RarityWeights: raidWeights}},
}

// GetEnemy retourne un ennemi du catalogue
func GetEnemy(id string) (*Enemy, bool) {
	e, ok := enemies[id]
	return e, ok
}

// Enemies retourne le catalogue trié par niveau puis par id
func Enemies() []*Enemy {
	list := make([]*Enemy, 0, len(enemies))
	for _, e := range enemies {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Level != list[j].Level {
			return list[i].Level < list[j].Level
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// EnemyCount retourne la taille du catalogue
func EnemyCount() int {
	return len(enemies)
}
