package models

// AbilityCategory catégorise les capacités
type AbilityCategory string

const (
	CategoryDamage  AbilityCategory = "damage"
	CategoryHeal    AbilityCategory = "heal"
	CategoryBuff    AbilityCategory = "buff"
	CategoryDebuff  AbilityCategory = "debuff"
	CategoryControl AbilityCategory = "control"
	CategoryExecute AbilityCategory = "execute"
)

// ScalingStat stat dérivée sur laquelle une capacité s'appuie
type ScalingStat string

const (
	ScaleAttackPower ScalingStat = "attack_power"
	ScaleSpellPower  ScalingStat = "spell_power"
)

// AbilityTarget règle de ciblage
type AbilityTarget string

const (
	TargetSelf     AbilityTarget = "self"
	TargetOpponent AbilityTarget = "opponent"
)

// DamageParams paramètres d'une capacité de dégâts
type DamageParams struct {
	Magnitude   float64     `json:"magnitude"`
	Scaling     ScalingStat `json:"scaling"`
	OnHitStatus *StatusSpec `json:"on_hit_status,omitempty"`
}

// HealParams paramètres d'une capacité de soin
type HealParams struct {
	Magnitude float64     `json:"magnitude"`
	Scaling   ScalingStat `json:"scaling"`
	Status    *StatusSpec `json:"status,omitempty"`
}

// BuffParams paramètres d'un buff (appliqué à soi)
type BuffParams struct {
	Status StatusSpec `json:"status"`
}

// DebuffParams paramètres d'un debuff (appliqué à l'adversaire)
type DebuffParams struct {
	Status StatusSpec `json:"status"`
}

// ControlParams paramètres d'un contrôle (stun/root/slow)
type ControlParams struct {
	Status StatusSpec `json:"status"`
}

// ExecuteParams paramètres d'une exécution : mise à mort instantanée
// sous le seuil de HP, sinon retombe sur des dégâts normaux
type ExecuteParams struct {
	Threshold float64     `json:"threshold"`
	Magnitude float64     `json:"magnitude"`
	Scaling   ScalingStat `json:"scaling"`
}

// StatusSpec décrit l'effet de statut induit par une capacité
type StatusSpec struct {
	Kind      StatusKind `json:"kind"`
	Duration  int        `json:"duration"`
	Magnitude float64    `json:"magnitude"`
}

// Ability entrée du catalogue statique des capacités.
// Exactement un bloc de paramètres est renseigné selon la catégorie.
type Ability struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category AbilityCategory `json:"category"`
	Cooldown int             `json:"cooldown"`
	Target   AbilityTarget   `json:"target"`

	// Prédicats conditionnels
	RequiresInvisible    bool       `json:"requires_invisible,omitempty"`
	RequiresTargetStatus StatusKind `json:"requires_target_status,omitempty"`

	Damage  *DamageParams  `json:"damage,omitempty"`
	Heal    *HealParams    `json:"heal,omitempty"`
	Buff    *BuffParams    `json:"buff,omitempty"`
	Debuff  *DebuffParams  `json:"debuff,omitempty"`
	Control *ControlParams `json:"control,omitempty"`
	Execute *ExecuteParams `json:"execute,omitempty"`
}

// FactionInfo entrée du catalogue statique des factions
type FactionInfo struct {
	ID          Faction  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	// Capacités apprises dans l'ordre des paliers de progression
	AbilityOrder []string `json:"ability_order"`
	// Niveaux auxquels chaque capacité est débloquée
	UnlockLevels []int `json:"unlock_levels"`
}

// ActiveAbilityCount nombre de capacités actives équipées en combat
const ActiveAbilityCount = 4

// LearnedAbilityCap nombre maximum de capacités apprises
const LearnedAbilityCap = 6
