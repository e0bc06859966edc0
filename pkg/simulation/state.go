package simulation

import (
	"fmt"
	"log"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ParticleState 活跃粒子的只读快照
type ParticleState struct {
	ID       ecs.EntityID
	Position vmath.Vec3
	Velocity vmath.Vec3
	Radius   float64
	Sleeping bool
}

// Snapshot 把活跃粒子按 ID 升序追加到 dst 并返回
// 传入 dst[:0] 可复用缓冲区，避免每帧分配
func (s *Simulation) Snapshot(dst []ParticleState) []ParticleState {
	s.particles.ForEachActive(func(id ecs.EntityID, p *components.ParticleComponent) bool {
		dst = append(dst, ParticleState{
			ID:       id,
			Position: p.Body.Position,
			Velocity: p.Body.Velocity,
			Radius:   p.Body.Radius,
			Sleeping: p.Body.Sleeping(),
		})
		return true
	})
	return dst
}

// Save 把活跃粒子、飞行中的弹射物和资源量写入存档
func (s *Simulation) Save(store *game.StateStore) error {
	if store == nil {
		return fmt.Errorf("state store is nil")
	}

	now := s.clock.Now()
	state := &game.SavedState{
		SavedAt:     now,
		Tick:        s.tick,
		Resources:   s.resources.Amount(),
		Particles:   make([]game.SavedParticle, 0, s.particles.ActiveCount()),
		Projectiles: make([]game.SavedProjectile, 0, s.projectile.ActiveCount()),
	}
	s.particles.ForEachActive(func(id ecs.EntityID, p *components.ParticleComponent) bool {
		state.Particles = append(state.Particles, game.SavedParticle{
			ID:       id,
			Position: p.Body.Position,
			Velocity: p.Body.Velocity,
			Radius:   p.Body.Radius,
		})
		return true
	})
	s.projectile.ForEachActive(func(p *components.ProjectileComponent) bool {
		state.Projectiles = append(state.Projectiles, game.SavedProjectile{
			ID:        p.ID,
			Position:  p.Position,
			Velocity:  p.Velocity,
			Direction: p.Direction,
			Cost:      p.Cost,
			Age:       p.Age(now).Seconds(),
		})
		return true
	})

	return store.Save(state)
}

// Restore 用存档替换当前状态
//
// 现有粒子和弹射物全部回收后再按存档激活。粒子优先放回存档中的槽位，
// 槽位被占用时取任意空闲槽位；超出池容量或活跃上限、以及坐标无效的粒子会被跳过。
// 恢复的粒子以当前时间作为激活时间，因此重新获得完整的最短存活期。
// 弹射物保留已飞行时间；无法重建的弹射物把携带的资源退还计数器。
//
// 返回:
//   - error: 读取失败时返回错误（包括 game.ErrNoSavedState），此时当前状态不变
func (s *Simulation) Restore(store *game.StateStore) error {
	if store == nil {
		return fmt.Errorf("state store is nil")
	}
	state, err := store.Load()
	if err != nil {
		return err
	}

	s.Clear()
	s.resources.SetAmount(state.Resources)
	s.tick = state.Tick
	now := s.clock.Now()

	// 先按原槽位放置，避免回退分配占用后面粒子的槽位
	var displaced []game.SavedParticle
	for _, sp := range state.Particles {
		if !s.particles.SpawnID(sp.ID, sp.Position, sp.Velocity, sp.Radius, now) {
			displaced = append(displaced, sp)
		}
	}
	skipped := 0
	for _, sp := range displaced {
		if _, ok := s.particles.Spawn(sp.Position, sp.Velocity, sp.Radius, now); !ok {
			skipped++
		}
	}

	refunded := 0
	for _, sp := range state.Projectiles {
		firedAt := now.Add(-time.Duration(sp.Age * float64(time.Second)))
		refunded += s.projectile.Restore(sp.ID, sp.Position, sp.Velocity, sp.Direction, sp.Cost, firedAt)
	}

	if skipped > 0 {
		log.Printf("[Simulation] Warning: restore skipped %d of %d particles", skipped, len(state.Particles))
	}
	if refunded > 0 {
		log.Printf("[Simulation] Warning: restore refunded %d from projectiles that could not be rebuilt", refunded)
	}
	log.Printf("[Simulation] Restored slot %q: %d particles, %d projectiles, resources=%d",
		store.Slot(), s.particles.ActiveCount(), s.projectile.ActiveCount(), s.resources.Amount())
	return nil
}
