package utils

import (
	"encoding/binary"
	"hash/fnv"
)

// CombatSeed dérive la graine d'un combat depuis son ID et l'epoch serveur.
// La graine est stockée dans l'état de combat pour que les replays soient
// reproductibles.
func CombatSeed(combatID string, serverEpoch int64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(combatID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(serverEpoch))
	h.Write(buf[:])
	seed := h.Sum64()
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return seed
}

// NextRand avance un générateur xorshift64* et retourne le nouvel état.
// L'état vit dans CombatState : chaque tirage est sérialisé avec le combat,
// ce qui rend la simulation déterministe entre instances.
func NextRand(state uint64) uint64 {
	if state == 0 {
		state = 0x9E3779B97F4A7C15
	}
	state ^= state >> 12
	state ^= state << 25
	state ^= state >> 27
	return state
}

// RandFloat convertit un état xorshift en flottant uniforme [0,1)
func RandFloat(state uint64) float64 {
	return float64((state*0x2545F4914F6CDD1D)>>11) / float64(1<<53)
}

// RandIntn convertit un état xorshift en entier uniforme [0,n)
func RandIntn(state uint64, n int) int {
	if n <= 0 {
		return 0
	}
	return int((state * 0x2545F4914F6CDD1D) % uint64(n))
}
