package service

import (
	"idleduelist/internal/models"
)

// Coefficients de dérivation des stats. Table de données, pas des constantes
// dispersées dans le code : l'équilibrage change ici et nulle part ailleurs.
type statCoefficients struct {
	BaseHP          int
	HPPerLevel      int
	HPPerFortitude  int
	HPPerMight      int
	BaseAttack      int
	AttackPerMight  int
	BaseSpell       int
	SpellPerArcana  int
	BaseDefense     int
	DefPerFortitude int

	BaseCrit       float64
	CritPerFinesse float64
	CritCap        float64

	BaseCritMult     float64
	CritMultPerBreak float64

	BaseDodge       float64
	DodgePerFinesse float64
	DodgeCap        float64

	BaseParry     float64
	ParryPerPoint float64
	ParryCap      float64

	ArmorPenPerArcana float64
	ArmorPenCap       float64

	BaseAccuracy       float64
	AccuracyPerInsight float64
	AccuracyCap        float64

	BaseSpeed       int
	SpeedPerFinesse int

	RegenPerFortitude float64
	RegenCap          float64

	LifestealPerPresence float64
	LifestealCap         float64

	CDRPerInsight  float64
	CDRPerPresence float64
	CDRCap         float64

	TurnMeterPerPresence int
}

var defaultCoefficients = statCoefficients{
	BaseHP:          50,
	HPPerLevel:      10,
	HPPerFortitude:  8,
	HPPerMight:      2,
	BaseAttack:      5,
	AttackPerMight:  2,
	BaseSpell:       5,
	SpellPerArcana:  2,
	BaseDefense:     2,
	DefPerFortitude: 1,

	BaseCrit:       0.05,
	CritPerFinesse: 0.002,
	CritCap:        0.75,

	BaseCritMult:     1.5,
	CritMultPerBreak: 0.25,

	BaseDodge:       0.02,
	DodgePerFinesse: 0.0015,
	DodgeCap:        0.40,

	BaseParry:     0.01,
	ParryPerPoint: 0.0005,
	ParryCap:      0.35,

	ArmorPenPerArcana: 0.001,
	ArmorPenCap:       0.60,

	BaseAccuracy:       0.05,
	AccuracyPerInsight: 0.001,
	AccuracyCap:        0.50,

	BaseSpeed:       10,
	SpeedPerFinesse: 1,

	RegenPerFortitude: 0.0005,
	RegenCap:          0.05,

	LifestealPerPresence: 0.0015,
	LifestealCap:         0.30,

	CDRPerInsight:  0.001,
	CDRPerPresence: 0.0005,
	CDRCap:         0.50,

	TurnMeterPerPresence: 10,
}

// Seuils de palier par stat. Atteindre un seuil active le passif nommé.
var breakpointThresholds = []int{50, 100, 200, 300}

// passiveNames passifs nommés par stat et par palier, dans l'ordre des seuils
var passiveNames = map[string][4]string{
	"might":     {"crushing_blows", "overwhelming_force", "titan_grip", "colossus"},
	"finesse":   {"fleet_footed", "blade_dancer", "untouchable", "phantom"},
	"fortitude": {"thick_skin", "stalwart", "juggernaut", "immovable"},
	"arcana":    {"attuned", "spellweaver", "archmage", "transcendent"},
	"insight":   {"keen_eye", "tactician", "oracle", "omniscient"},
	"presence":  {"commanding", "dreadlord", "warbringer", "avatar"},
}

// DeriveStats calcule les stats de combat dérivées. Fonction pure :
// mêmes entrées, mêmes sorties, aucune E/S. Seuls les objets montés comptent.
// Les passifs de faction n'entrent pas ici : ils s'appliquent coup par coup
// dans la résolution de combat.
func DeriveStats(base models.StatVector, level int, equipped []*models.Equipment) models.DerivedStats {
	c := defaultCoefficients

	effective := base
	for _, item := range equipped {
		if item.MountedSlot == nil {
			continue
		}
		effective = effective.Add(item.Modifiers)
	}

	insightBreaks := breakpointsReached(effective.Insight)

	d := models.DerivedStats{
		MaxHP:       c.BaseHP + c.HPPerLevel*level + c.HPPerFortitude*effective.Fortitude + c.HPPerMight*effective.Might,
		AttackPower: c.BaseAttack + c.AttackPerMight*effective.Might + level,
		SpellPower:  c.BaseSpell + c.SpellPerArcana*effective.Arcana + level,
		Defense:     c.BaseDefense + c.DefPerFortitude*effective.Fortitude + level/2,

		CritChance:     clamp(c.BaseCrit+c.CritPerFinesse*float64(effective.Finesse), 0, c.CritCap),
		CritMultiplier: c.BaseCritMult + c.CritMultPerBreak*float64(insightBreaks),
		DodgeChance:    clamp(c.BaseDodge+c.DodgePerFinesse*float64(effective.Finesse), 0, c.DodgeCap),
		ParryChance:    clamp(c.BaseParry+c.ParryPerPoint*float64(effective.Finesse+effective.Might), 0, c.ParryCap),
		ArmorPen:       clamp(c.ArmorPenPerArcana*float64(effective.Arcana), 0, c.ArmorPenCap),
		Accuracy:       clamp(c.BaseAccuracy+c.AccuracyPerInsight*float64(effective.Insight), 0, c.AccuracyCap),

		Speed:                c.BaseSpeed + c.SpeedPerFinesse*effective.Finesse + level/2,
		HPRegenPct:           clamp(c.RegenPerFortitude*float64(effective.Fortitude), 0, c.RegenCap),
		LifestealPct:         clamp(c.LifestealPerPresence*float64(effective.Presence), 0, c.LifestealCap),
		CooldownReductionPct: clamp(c.CDRPerInsight*float64(effective.Insight)+c.CDRPerPresence*float64(effective.Presence), 0, c.CDRCap),
		TurnMeterBonus:       effective.Presence / c.TurnMeterPerPresence,
	}

	d.Passives = collectPassives(effective)
	return d
}

// breakpointsReached compte les paliers atteints par une valeur de stat
func breakpointsReached(value int) int {
	n := 0
	for _, threshold := range breakpointThresholds {
		if value >= threshold {
			n++
		}
	}
	return n
}

// collectPassives retourne les passifs actifs, dans un ordre stable
func collectPassives(effective models.StatVector) []string {
	stats := []struct {
		name  string
		value int
	}{
		{"might", effective.Might},
		{"finesse", effective.Finesse},
		{"fortitude", effective.Fortitude},
		{"arcana", effective.Arcana},
		{"insight", effective.Insight},
		{"presence", effective.Presence},
	}

	var passives []string
	for _, s := range stats {
		names := passiveNames[s.name]
		for i, threshold := range breakpointThresholds {
			if s.value >= threshold {
				passives = append(passives, names[i])
			}
		}
	}
	return passives
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
