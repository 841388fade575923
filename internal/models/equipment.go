package models

import (
	"time"

	"github.com/google/uuid"
)

// EquipmentSlot identifie l'emplacement d'équipement
type EquipmentSlot string

const (
	SlotWeapon    EquipmentSlot = "weapon"
	SlotOffhand   EquipmentSlot = "offhand"
	SlotHead      EquipmentSlot = "head"
	SlotChest     EquipmentSlot = "chest"
	SlotLegs      EquipmentSlot = "legs"
	SlotAccessory EquipmentSlot = "accessory"
)

// AllSlots liste ordonnée des emplacements
var AllSlots = []EquipmentSlot{SlotWeapon, SlotOffhand, SlotHead, SlotChest, SlotLegs, SlotAccessory}

// EquipmentType type concret d'un objet (arme ou pièce d'armure)
type EquipmentType string

const (
	TypeSword     EquipmentType = "sword"
	TypeAxe       EquipmentType = "axe"
	TypeDagger    EquipmentType = "dagger"
	TypeStaff     EquipmentType = "staff"
	TypeShield    EquipmentType = "shield"
	TypeTome      EquipmentType = "tome"
	TypeHelmet    EquipmentType = "helmet"
	TypeChestplate EquipmentType = "chestplate"
	TypeLeggings  EquipmentType = "leggings"
	TypeAmulet    EquipmentType = "amulet"
)

// SlotFor retourne l'emplacement occupé par un type d'objet
func SlotFor(t EquipmentType) EquipmentSlot {
	switch t {
	case TypeSword, TypeAxe, TypeDagger, TypeStaff:
		return SlotWeapon
	case TypeShield, TypeTome:
		return SlotOffhand
	case TypeHelmet:
		return SlotHead
	case TypeChestplate:
		return SlotChest
	case TypeLeggings:
		return SlotLegs
	default:
		return SlotAccessory
	}
}

// IsWeapon indique si le type est une arme (la parade exige une arme en main)
func (t EquipmentType) IsWeapon() bool {
	return SlotFor(t) == SlotWeapon
}

// Rarity niveau de rareté d'un objet (six niveaux)
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// RarityMultiplier facteur appliqué aux modificateurs de stats par rareté
var RarityMultiplier = map[Rarity]float64{
	RarityCommon:    1.0,
	RarityUncommon:  1.25,
	RarityRare:      1.6,
	RarityEpic:      2.0,
	RarityLegendary: 2.6,
	RarityMythic:    3.5,
}

// Equipment représente un objet possédé par un personnage.
// MountedSlot nil = rangé dans l'inventaire, sinon monté dans cet emplacement.
type Equipment struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	CharacterID uuid.UUID      `json:"character_id" db:"character_id"`
	Name        string         `json:"name" db:"name"`
	Type        EquipmentType  `json:"type" db:"type"`
	Rarity      Rarity         `json:"rarity" db:"rarity"`
	ItemLevel   int            `json:"item_level" db:"item_level"`
	Modifiers   StatVector     `json:"modifiers" db:"-"`
	MountedSlot *EquipmentSlot `json:"mounted_slot,omitempty" db:"mounted_slot"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// IsMounted indique si l'objet est monté dans un emplacement
func (e *Equipment) IsMounted() bool {
	return e.MountedSlot != nil
}
