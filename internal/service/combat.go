package service

import (
	"math"
	"time"

	"github.com/google/uuid"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/catalog"
	"idleduelist/internal/models"
	"idleduelist/internal/utils"
)

// MaxCombatTurns plafond de tours : au-delà, le vainqueur est le participant
// avec le meilleur ratio de vie
const MaxCombatTurns = 200

// defendReduction réduction de dégâts conférée par l'action Défendre
const defendReduction = 0.5

// invisibleDodgeBonus bonus d'esquive d'une cible invisible
const invisibleDodgeBonus = 0.5

// NewCombat initialise un combat : vie pleine, cooldowns à zéro, tour 1.
// Le premier participant à agir est celui avec le meilleur speed+turnMeter ;
// égalité = l'attaquant (index 0) commence.
func NewCombat(id uuid.UUID, mode models.CombatMode, ownerID uuid.UUID, attacker, defender *models.Participant, serverEpoch int64) *models.CombatState {
	seed := utils.CombatSeed(id.String(), serverEpoch)

	for _, p := range []*models.Participant{attacker, defender} {
		p.MaxHP = p.Stats.MaxHP
		p.HP = p.Stats.MaxHP
		p.Statuses = nil
		if p.Cooldowns == nil {
			p.Cooldowns = make(map[string]int)
		}
		for _, abilityID := range p.Abilities {
			p.Cooldowns[abilityID] = 0
		}
	}

	currentIdx := 0
	if initiative(defender) > initiative(attacker) {
		currentIdx = 1
	}

	now := time.Now().UTC()
	return &models.CombatState{
		ID:           id,
		Mode:         mode,
		OwnerID:      ownerID,
		Version:      0,
		Seed:         seed,
		RNGState:     seed,
		Turn:         1,
		CurrentIdx:   currentIdx,
		Participants: [2]*models.Participant{attacker, defender},
		Status:       models.CombatOngoing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func initiative(p *models.Participant) int {
	return p.Stats.Speed + p.Stats.TurnMeterBonus
}

// ParticipantKey identifie un participant dans le journal et les vues
func ParticipantKey(p *models.Participant) string {
	if p.EnemyID != "" {
		return p.EnemyID
	}
	return p.CharacterID.String()
}

// roll consomme un tirage du générateur du combat. L'état du générateur
// vit dans CombatState : l'ordre des tirages est fixe, les replays aussi.
func roll(s *models.CombatState) float64 {
	s.RNGState = utils.NextRand(s.RNGState)
	return utils.RandFloat(s.RNGState)
}

// ValidateAction vérifie qu'une action est jouable sans toucher à l'état
func ValidateAction(s *models.CombatState, actorKey string, action models.Action) error {
	if s.IsTerminal() {
		return apperrors.Conflict("combat %s is already over", s.ID)
	}
	actor := s.Current()
	if ParticipantKey(actor) != actorKey {
		return apperrors.Validation("it is not this participant's turn")
	}

	switch action.Type {
	case models.ActionDefend:
		// toujours permis : un participant étourdi peut encore se défendre
		return nil
	case models.ActionAttack:
		if actor.HasStatus(models.StatusStun) || actor.HasStatus(models.StatusRoot) {
			return apperrors.Validation("a disabling status prevents attacking")
		}
		return nil
	case models.ActionAbility:
		if actor.HasStatus(models.StatusStun) || actor.HasStatus(models.StatusRoot) {
			return apperrors.Validation("a disabling status prevents using abilities")
		}
		if actor.HasStatus(models.StatusSlow) {
			return apperrors.Validation("slowed: abilities are unavailable this turn")
		}
		return validateAbilityUse(s, actor, action.AbilityID)
	default:
		return apperrors.Validation("unknown action type %q", action.Type)
	}
}

func validateAbilityUse(s *models.CombatState, actor *models.Participant, abilityID string) error {
	if abilityID == "" {
		return apperrors.Validation("ability_id is required for ability actions")
	}
	if !actor.HasAbility(abilityID) {
		return apperrors.Validation("ability %q is not in the active set", abilityID)
	}
	ability, ok := catalog.GetAbility(abilityID)
	if !ok {
		return apperrors.Validation("unknown ability %q", abilityID)
	}
	if actor.Cooldowns[abilityID] > 0 {
		return apperrors.Validation("ability %q is on cooldown for %d more turns", abilityID, actor.Cooldowns[abilityID])
	}
	if ability.RequiresInvisible && !actor.HasStatus(models.StatusInvisible) {
		return apperrors.Validation("ability %q requires invisibility", abilityID)
	}
	if ability.RequiresTargetStatus != "" && !s.Opponent().HasStatus(ability.RequiresTargetStatus) {
		return apperrors.Validation("ability %q requires the target to be affected by %s", abilityID, ability.RequiresTargetStatus)
	}
	return nil
}

// ResolveAction résout une action validée et fait avancer le combat.
// Mutation en place : l'appelant travaille sur sa propre copie de l'état
// et la publie par CAS.
func ResolveAction(s *models.CombatState, actorKey string, action models.Action) error {
	if err := ValidateAction(s, actorKey, action); err != nil {
		return err
	}

	actor := s.Current()
	target := s.Opponent()

	// a. tick de statuts pré-action : le poison peut tuer l'acteur
	// avant qu'il n'agisse
	tickStatuses(s, actor)
	if actor.HP <= 0 {
		winnerIdx := 1 - s.CurrentIdx
		terminate(s, winnerIdx, models.ReasonKill)
		return nil
	}

	switch action.Type {
	case models.ActionAttack:
		resolveAttack(s, actor, target)
	case models.ActionDefend:
		resolveDefend(s, actor)
	case models.ActionAbility:
		ability, _ := catalog.GetAbility(action.AbilityID)
		resolveAbility(s, actor, target, ability)
	}

	if s.IsTerminal() {
		return nil
	}

	// f. mort de la cible, sinon tour suivant
	if target.HP <= 0 {
		terminate(s, s.CurrentIdx, models.ReasonKill)
		return nil
	}
	advanceTurn(s)
	return nil
}

// tickStatuses applique les effets périodiques au début du tour de l'acteur
func tickStatuses(s *models.CombatState, p *models.Participant) {
	key := ParticipantKey(p)

	dotFraction := p.StatusMagnitude(models.StatusPoison) + p.StatusMagnitude(models.StatusBleed)
	if dotFraction > 0 {
		damage := int(math.Ceil(dotFraction * float64(p.MaxHP)))
		if damage < 1 {
			damage = 1
		}
		p.HP -= damage
		if p.HP < 0 {
			p.HP = 0
		}
		s.Log = append(s.Log, models.LogEvent{
			Turn: s.Turn, Actor: key, Kind: "status_tick", Target: key,
			Hit: true, Damage: damage,
		})
	}

	healFraction := p.StatusMagnitude(models.StatusRegen) + p.Stats.HPRegenPct
	if healFraction > 0 && p.HP > 0 && p.HP < p.MaxHP {
		healed := int(healFraction * float64(p.MaxHP))
		if healed < 1 {
			healed = 1
		}
		p.HP += healed
		if p.HP > p.MaxHP {
			p.HP = p.MaxHP
		}
		s.Log = append(s.Log, models.LogEvent{
			Turn: s.Turn, Actor: key, Kind: "status_tick", Target: key,
			Hit: true, Healed: healed,
		})
	}
}

// resolveAttack attaque de base : puissance d'attaque, pipeline complet
func resolveAttack(s *models.CombatState, actor, target *models.Participant) {
	damage, hit, crit := rollDamage(s, actor, target, float64(actor.Stats.AttackPower))
	if hit {
		damage = applyDamage(s, actor, target, damage)
	}
	s.Log = append(s.Log, models.LogEvent{
		Turn: s.Turn, Actor: ParticipantKey(actor), Kind: "attack",
		Target: ParticipantKey(target), Hit: hit, Crit: crit, Damage: damage,
	})
}

// resolveDefend posture défensive, permise même sous étourdissement
func resolveDefend(s *models.CombatState, actor *models.Participant) {
	applyStatus(actor, models.StatusSpec{
		Kind: models.StatusDefending, Duration: 2, Magnitude: defendReduction,
	}, s.CurrentIdx)
	s.Log = append(s.Log, models.LogEvent{
		Turn: s.Turn, Actor: ParticipantKey(actor), Kind: "defend",
		Target: ParticipantKey(actor), Hit: true,
		StatusApplied: models.StatusDefending,
	})
}

// resolveAbility dispatch par catégorie du catalogue
func resolveAbility(s *models.CombatState, actor, target *models.Participant, ability *models.Ability) {
	actorKey := ParticipantKey(actor)
	event := models.LogEvent{
		Turn: s.Turn, Actor: actorKey, Kind: "ability",
		AbilityID: ability.ID, Target: ParticipantKey(target),
	}

	switch ability.Category {
	case models.CategoryDamage:
		power := scaledPower(actor, ability.Damage.Magnitude, ability.Damage.Scaling)
		damage, hit, crit := rollDamage(s, actor, target, power)
		if hit {
			damage = applyDamage(s, actor, target, damage)
			if ability.Damage.OnHitStatus != nil {
				applyStatus(target, *ability.Damage.OnHitStatus, s.CurrentIdx)
				event.StatusApplied = ability.Damage.OnHitStatus.Kind
			}
		}
		event.Hit, event.Crit, event.Damage = hit, crit, damage

	case models.CategoryExecute:
		if target.HPRatio() <= ability.Execute.Threshold {
			// branche terminale dédiée : mise à mort immédiate
			target.HP = 0
			event.Hit = true
			event.Damage = target.MaxHP
			event.CooldownSet = effectiveCooldown(actor, ability)
			actor.Cooldowns[ability.ID] = event.CooldownSet
			s.Log = append(s.Log, event)
			terminate(s, s.CurrentIdx, models.ReasonExecute)
			return
		}
		power := scaledPower(actor, ability.Execute.Magnitude, ability.Execute.Scaling)
		damage, hit, crit := rollDamage(s, actor, target, power)
		if hit {
			damage = applyDamage(s, actor, target, damage)
		}
		event.Hit, event.Crit, event.Damage = hit, crit, damage

	case models.CategoryHeal:
		power := scaledPower(actor, ability.Heal.Magnitude, ability.Heal.Scaling)
		healed := int(power)
		if actor.HP+healed > actor.MaxHP {
			healed = actor.MaxHP - actor.HP
		}
		actor.HP += healed
		event.Hit = true
		event.Target = actorKey
		event.Healed = healed
		if ability.Heal.Status != nil {
			applyStatus(actor, *ability.Heal.Status, s.CurrentIdx)
			event.StatusApplied = ability.Heal.Status.Kind
		}

	case models.CategoryBuff:
		applyStatus(actor, ability.Buff.Status, s.CurrentIdx)
		event.Hit = true
		event.Target = actorKey
		event.StatusApplied = ability.Buff.Status.Kind

	case models.CategoryDebuff:
		applyStatus(target, ability.Debuff.Status, s.CurrentIdx)
		event.Hit = true
		event.StatusApplied = ability.Debuff.Status.Kind

	case models.CategoryControl:
		applyStatus(target, ability.Control.Status, s.CurrentIdx)
		event.Hit = true
		event.StatusApplied = ability.Control.Status.Kind
	}

	// attaquer depuis l'ombre révèle l'acteur
	if ability.Target == models.TargetOpponent {
		removeStatus(actor, models.StatusInvisible)
	}

	// e. cooldown de la capacité, réduit par le CDR
	cd := effectiveCooldown(actor, ability)
	actor.Cooldowns[ability.ID] = cd
	event.CooldownSet = cd
	s.Log = append(s.Log, event)
}

// scaledPower magnitude × stat de scaling de la capacité
func scaledPower(actor *models.Participant, magnitude float64, scaling models.ScalingStat) float64 {
	switch scaling {
	case models.ScaleSpellPower:
		return magnitude * float64(actor.Stats.SpellPower)
	default:
		return magnitude * float64(actor.Stats.AttackPower)
	}
}

// effectiveCooldown applique la réduction de cooldown, plancher 1
func effectiveCooldown(actor *models.Participant, ability *models.Ability) int {
	if ability.Cooldown == 0 {
		return 0
	}
	cd := int(math.Round(float64(ability.Cooldown) * (1 - actor.Stats.CooldownReductionPct)))
	if cd < 1 {
		cd = 1
	}
	return cd
}

// rollDamage pipeline de dégâts : toucher, parade, critique, dégâts bruts,
// modificateurs passifs puis buffs/debuffs. L'absorption du bouclier et la
// déduction de vie sont dans applyDamage.
func rollDamage(s *models.CombatState, actor, target *models.Participant, power float64) (damage int, hit, crit bool) {
	// toucher : tirage uniforme [0,1) contre l'esquive moins la précision
	dodge := target.Stats.DodgeChance
	if target.HasStatus(models.StatusRoot) {
		dodge = 0
	}
	if target.HasStatus(models.StatusInvisible) {
		dodge += invisibleDodgeBonus
	}
	threshold := dodge - actor.Stats.Accuracy*0.5
	if threshold < 0 {
		threshold = 0
	}
	if roll(s) < threshold {
		return 0, false, false
	}

	// parade : seulement un défenseur armé et capable de réagir
	parried := false
	if target.Armed && !target.HasStatus(models.StatusStun) {
		parried = roll(s) < target.Stats.ParryChance
	}

	crit = roll(s) < actor.Stats.CritChance

	defense := float64(target.Stats.Defense)
	base := power - math.Max(0, defense*(1-actor.Stats.ArmorPen))
	if base < 1 {
		base = 1
	}
	if crit {
		base *= actor.Stats.CritMultiplier
	}
	if parried {
		base *= 0.5
	}

	base *= passiveDamageModifier(actor, target)
	base *= statusDamageModifier(actor, target)

	damage = int(base)
	if damage < 1 {
		damage = 1
	}
	return damage, true, crit
}

// passiveDamageModifier modificateurs des passifs de palier et de faction
func passiveDamageModifier(actor, target *models.Participant) float64 {
	mod := 1.0
	if actor.Stats.HasPassive("crushing_blows") {
		mod *= 1.10
	}
	if actor.Stats.HasPassive("titan_grip") {
		mod *= 1.10
	}
	if target.Stats.HasPassive("thick_skin") {
		mod *= 0.90
	}
	if target.Stats.HasPassive("juggernaut") {
		mod *= 0.90
	}

	switch actor.Faction {
	case models.FactionShadow:
		// opportunisme : frapper une cible affaiblie fait plus mal
		if target.HasStatus(models.StatusPoison) || target.HasStatus(models.StatusBleed) || target.HasStatus(models.StatusWeakened) {
			mod *= 1.10
		}
	case models.FactionWild:
		mod *= 1.05
	}
	if target.Faction == models.FactionOrder {
		mod *= 0.95
	}
	return mod
}

// statusDamageModifier buffs/debuffs actifs : empowered, weakened, defending
func statusDamageModifier(actor, target *models.Participant) float64 {
	mod := 1.0
	if m := actor.StatusMagnitude(models.StatusEmpowered); m > 0 {
		mod *= 1 + m
	}
	if m := actor.StatusMagnitude(models.StatusWeakened); m > 0 {
		mod *= math.Max(0, 1-m)
	}
	if target.HasStatus(models.StatusDefending) {
		mod *= 1 - defendReduction
	}
	return mod
}

// applyDamage absorption du bouclier, déduction de vie, vol de vie.
// Retourne les dégâts effectivement infligés après absorption.
func applyDamage(s *models.CombatState, actor, target *models.Participant, damage int) int {
	if shield := target.StatusMagnitude(models.StatusShield); shield > 0 {
		absorbed := int(float64(damage) * math.Min(1, shield))
		damage -= absorbed
		if damage < 0 {
			damage = 0
		}
	}
	target.HP -= damage
	if target.HP < 0 {
		target.HP = 0
	}

	if actor.Stats.LifestealPct > 0 && damage > 0 {
		healed := int(float64(damage) * actor.Stats.LifestealPct)
		actor.HP += healed
		if actor.HP > actor.MaxHP {
			actor.HP = actor.MaxHP
		}
	}
	return damage
}

// applyStatus empile un effet avec sa durée pleine
func applyStatus(p *models.Participant, spec models.StatusSpec, sourceIdx int) {
	p.Statuses = append(p.Statuses, models.StatusEffect{
		Kind:      spec.Kind,
		Duration:  spec.Duration,
		Magnitude: spec.Magnitude,
		SourceIdx: sourceIdx,
	})
}

func removeStatus(p *models.Participant, kind models.StatusKind) {
	filtered := p.Statuses[:0]
	for _, st := range p.Statuses {
		if st.Kind != kind {
			filtered = append(filtered, st)
		}
	}
	p.Statuses = filtered
}

// advanceTurn bascule le participant courant : ses cooldowns et durées de
// statuts décrémentent au moment où il redevient actif
func advanceTurn(s *models.CombatState) {
	s.Turn++
	s.CurrentIdx = 1 - s.CurrentIdx

	next := s.Current()
	for abilityID, cd := range next.Cooldowns {
		if cd > 0 {
			next.Cooldowns[abilityID] = cd - 1
		}
	}
	kept := next.Statuses[:0]
	for _, st := range next.Statuses {
		st.Duration--
		if st.Duration > 0 {
			kept = append(kept, st)
		}
	}
	next.Statuses = kept

	limit := s.TurnCap
	if limit <= 0 {
		limit = MaxCombatTurns
	}
	if s.Turn > limit {
		winnerIdx := cappedWinner(s)
		terminate(s, winnerIdx, models.ReasonTurnCap)
	}
}

// cappedWinner meilleur ratio de vie ; égalité = l'attaquant (index 0)
func cappedWinner(s *models.CombatState) int {
	a, b := s.Participants[0].HPRatio(), s.Participants[1].HPRatio()
	if b > a {
		return 1
	}
	return 0
}

func terminate(s *models.CombatState, winnerIdx int, reason models.TerminationReason) {
	s.Status = models.CombatTerminal
	s.WinnerIdx = &winnerIdx
	s.Reason = reason
	s.UpdatedAt = time.Now().UTC()
}

// ResolveForfeit termine un combat par abandon du participant donné
func ResolveForfeit(s *models.CombatState, quitterIdx int) {
	terminate(s, 1-quitterIdx, models.ReasonForfeit)
}

// BotAction choisit l'action d'un participant piloté par le serveur
// (ennemi PvE, adversaire bot en PvP). Déterministe : la première capacité
// utilisable dans l'ordre du set, sinon attaque, sinon défense.
func BotAction(s *models.CombatState) models.Action {
	actor := s.Current()

	if actor.HasStatus(models.StatusStun) || actor.HasStatus(models.StatusRoot) {
		return models.Action{Type: models.ActionDefend}
	}
	if !actor.HasStatus(models.StatusSlow) {
		for _, abilityID := range actor.Abilities {
			if err := validateAbilityUse(s, actor, abilityID); err == nil {
				return models.Action{Type: models.ActionAbility, AbilityID: abilityID}
			}
		}
	}
	return models.Action{Type: models.ActionAttack}
}
