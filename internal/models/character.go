package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// CharacterNamePattern contraint les noms de personnage (1-50, alphanumériques + _ et espace)
var CharacterNamePattern = regexp.MustCompile(`^[A-Za-z0-9_ ]{1,50}$`)

const (
	// MaxLevel niveau maximum d'un personnage
	MaxLevel = 100
	// StatPointsPerLevel points de stats gagnés par niveau
	StatPointsPerLevel = 3
	// StartingRating rating PvP initial
	StartingRating = 1000
	// MinRating plancher de rating PvP
	MinRating = 100
)

// Faction identifie l'une des trois factions jouables
type Faction string

const (
	FactionOrder  Faction = "order"
	FactionShadow Faction = "shadow"
	FactionWild   Faction = "wild"
)

// IsValid vérifie que la faction existe
func (f Faction) IsValid() bool {
	return f == FactionOrder || f == FactionShadow || f == FactionWild
}

// StatVector regroupe les six statistiques de base
type StatVector struct {
	Might     int `json:"might" db:"might"`
	Finesse   int `json:"finesse" db:"finesse"`
	Fortitude int `json:"fortitude" db:"fortitude"`
	Arcana    int `json:"arcana" db:"arcana"`
	Insight   int `json:"insight" db:"insight"`
	Presence  int `json:"presence" db:"presence"`
}

// Total retourne la somme des points alloués
func (s StatVector) Total() int {
	return s.Might + s.Finesse + s.Fortitude + s.Arcana + s.Insight + s.Presence
}

// Add retourne la somme composante par composante
func (s StatVector) Add(other StatVector) StatVector {
	return StatVector{
		Might:     s.Might + other.Might,
		Finesse:   s.Finesse + other.Finesse,
		Fortitude: s.Fortitude + other.Fortitude,
		Arcana:    s.Arcana + other.Arcana,
		Insight:   s.Insight + other.Insight,
		Presence:  s.Presence + other.Presence,
	}
}

// Character représente un personnage jouable
type Character struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Faction   Faction    `json:"faction" db:"faction"`
	Level     int        `json:"level" db:"level"`
	XP        int64      `json:"xp" db:"xp"`
	Gold      int64      `json:"gold" db:"gold"`
	BaseStats StatVector `json:"base_stats" db:"-"`
	UnspentPoints int    `json:"unspent_points" db:"unspent_points"`
	Rating    int        `json:"rating" db:"rating"`
	Wins      int        `json:"wins" db:"wins"`
	Losses    int        `json:"losses" db:"losses"`
	CurrentHP int        `json:"current_hp" db:"current_hp"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	// Relations (chargées séparément)
	Inventory []*Equipment `json:"inventory,omitempty" db:"-"`
	Equipped  []*Equipment `json:"equipped,omitempty" db:"-"`
}

// EarnedStatPoints retourne le budget total de points de stats au niveau courant
func (c *Character) EarnedStatPoints() int {
	return StatPointsPerLevel * (c.Level - 1)
}

// XPForLevel retourne le seuil d'XP cumulé pour atteindre un niveau
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	// Courbe quadratique douce : 100, 300, 600, 1000, ...
	n := int64(level - 1)
	return 50 * n * (n + 1)
}

// LevelForXP retourne le niveau atteint pour un XP cumulé
func LevelForXP(xp int64) int {
	level := 1
	for level < MaxLevel && xp >= XPForLevel(level+1) {
		level++
	}
	return level
}

// DerivedStats est le vecteur de stats dérivées consommé par le simulateur
type DerivedStats struct {
	MaxHP                int     `json:"max_hp"`
	AttackPower          int     `json:"attack_power"`
	SpellPower           int     `json:"spell_power"`
	Defense              int     `json:"defense"`
	CritChance           float64 `json:"crit_chance"`
	CritMultiplier       float64 `json:"crit_multiplier"`
	DodgeChance          float64 `json:"dodge_chance"`
	ParryChance          float64 `json:"parry_chance"`
	ArmorPen             float64 `json:"armor_pen"`
	Accuracy             float64 `json:"accuracy"`
	Speed                int     `json:"speed"`
	HPRegenPct           float64 `json:"hp_regen_pct"`
	LifestealPct         float64 `json:"lifesteal_pct"`
	CooldownReductionPct float64 `json:"cooldown_reduction_pct"`
	TurnMeterBonus       int     `json:"turn_meter_bonus"`

	// Passifs débloqués par paliers (50/100/200/300)
	Passives []string `json:"passives,omitempty"`
}

// HasPassive teste la présence d'un passif nommé
func (d *DerivedStats) HasPassive(name string) bool {
	for _, p := range d.Passives {
		if p == name {
			return true
		}
	}
	return false
}
