package sim

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/combat"
	"github.com/Alex1um/simple-unbalanced-game/logging/lifecycle"
	"github.com/Alex1um/simple-unbalanced-game/logging/progression"
)

// progressionPhase rewards the attacker of every lethal record this tick
// with an enchantment scaled by the victim's stats. Both ships must still be
// present; victims are only removed afterwards.
func (e *Engine) progressionPhase() {
	w := e.world
	for _, rec := range e.feed {
		if !rec.Lethal() {
			continue
		}
		attacker, ok := w.ships[rec.Attacker]
		if !ok {
			continue
		}
		victim, ok := w.ships[rec.Victim]
		if !ok {
			continue
		}
		reward := ScaledEnchantment(victim.ShipStats, e.deps.ProgressionRNG)
		attacker.ShipStats.Apply(reward, e.cfg.StatCeiling)

		attackerRef := logging.Ref(logging.EntityKindShip, uint64(rec.Attacker))
		victimRef := logging.Ref(logging.EntityKindShip, uint64(rec.Victim))
		e.deps.Metrics.Add(metricKillsTotal, 1)
		combat.Defeat(context.Background(), e.deps.Publisher, e.tick, attackerRef, victimRef,
			combat.DefeatPayload{SelfInflicted: rec.Attacker == rec.Victim}, nil)
		progression.EnchantmentApplied(context.Background(), e.deps.Publisher, e.tick, attackerRef, &victimRef,
			enchantmentPayload(progression.SourceKill, reward), nil)
	}
}

// reap removes every ship at or below zero hp, together with its grid cell
// and any upgrade held for it.
func (e *Engine) reap() {
	w := e.world
	for _, id := range w.shipIDs() {
		s := w.ships[id]
		if s.Alive() {
			continue
		}
		cx, cy := w.grid.CellOf(s.X, s.Y)
		if cell := w.grid.At(cx, cy); cell.Category == CategoryShip && cell.ID == uint64(id) {
			w.grid.Clear(cx, cy)
		}
		if u, ok := w.takeUpgrade(id); ok {
			if cell := w.grid.At(u.X, u.Y); cell.Category == CategoryUpgrade && cell.ID == uint64(id) {
				w.grid.Clear(u.X, u.Y)
			}
		}
		hp := s.HP
		w.removeShip(id)
		lifecycle.ShipDestroyed(context.Background(), e.deps.Publisher, e.tick, logging.Ref(logging.EntityKindShip, uint64(id)),
			lifecycle.ShipDestroyedPayload{HP: hp}, nil)
	}
}

func enchantmentPayload(source string, e Enchantment) progression.EnchantmentPayload {
	return progression.EnchantmentPayload{
		Source:      source,
		TurnRate:    e.TurnRate,
		V:           e.V,
		RepairRate:  e.RepairRate,
		MaxHP:       e.MaxHP,
		BulletTTL:   e.BulletTTL,
		BulletSpeed: e.BulletSpeed,
		BulletHP:    e.BulletHP,
	}
}
