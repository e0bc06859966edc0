package systems

import (
	"math"
	"math/rand"
	"time"

	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ActivationSystem 决定哪些池化粒子处于活跃状态
//
// 每帧先回收远离中心且已过最短存活期的粒子，再在中心周围的环带内补足粒子，
// 这样本帧回收的槽位可以立即被重新激活。
type ActivationSystem struct {
	particles *entities.ParticlePool
	terrain   game.HeightField
	rng       *rand.Rand
	cfg       config.ActivationConfig
	radius    float64
	grace     time.Duration

	// 预分配的 ID 缓冲区，避免每帧分配
	scratch []ecs.EntityID
}

// NewActivationSystem 创建激活策略系统
//
// 参数:
//   - particles: 粒子池
//   - terrain: 地形高度查询，可为 nil（视为高度 0）
//   - rng: 随机源（由调用方注入，便于测试复现）
//   - cfg: 模拟配置
func NewActivationSystem(particles *entities.ParticlePool, terrain game.HeightField, rng *rand.Rand, cfg *config.SimulationConfig) *ActivationSystem {
	if terrain == nil {
		terrain = game.FlatTerrain{}
	}
	return &ActivationSystem{
		particles: particles,
		terrain:   terrain,
		rng:       rng,
		cfg:       cfg.Activation,
		radius:    cfg.Pool.DefaultRadius,
		grace:     cfg.Activation.MinLiveDuration(),
		scratch:   make([]ecs.EntityID, 0, particles.Capacity()),
	}
}

// Update 按固定顺序执行：先回收，再激活
// 返回 (回收数量, 激活数量)
func (s *ActivationSystem) Update(center vmath.Vec3, now time.Time) (int, int) {
	released := s.DeactivateFar(center, s.cfg.DespawnDistance, now)
	activated := s.ActivateNear(center, s.cfg.DesiredLiveCount, now)
	return released, activated
}

// DeactivateFar 回收水平距离超过 maxDistance 且已存活超过最短存活期的粒子
// 返回回收数量
func (s *ActivationSystem) DeactivateFar(point vmath.Vec3, maxDistance float64, now time.Time) int {
	maxSq := maxDistance * maxDistance
	released := 0

	s.scratch = s.particles.ActiveIDs(s.scratch[:0])
	for _, id := range s.scratch {
		p := s.particles.Get(id)
		if p.Body.Position.PlanarDistSq(point) <= maxSq {
			continue
		}
		if p.LiveFor(now) <= s.grace {
			continue
		}
		if s.particles.Release(id) {
			released++
		}
	}

	return released
}

// ActivateNear 当活跃数低于 desiredCount 时，在 point 周围的环带内激活粒子
//
// 空闲粒子通过洗牌均匀随机选取，不偏向低下标槽位。
// desiredCount 会被限制在活跃上限以内。返回激活数量。
func (s *ActivationSystem) ActivateNear(point vmath.Vec3, desiredCount int, now time.Time) int {
	if desiredCount > s.particles.MaxLive() {
		desiredCount = s.particles.MaxLive()
	}
	need := desiredCount - s.particles.ActiveCount()
	if need <= 0 {
		return 0
	}

	s.scratch = s.particles.InactiveIDs(s.scratch[:0])
	s.rng.Shuffle(len(s.scratch), func(i, j int) {
		s.scratch[i], s.scratch[j] = s.scratch[j], s.scratch[i]
	})

	activated := 0
	for _, id := range s.scratch {
		if activated >= need {
			break
		}
		pos := s.sampleAnnulus(point)
		vel := vmath.V3(
			s.jitter(s.cfg.VelocityJitter),
			s.rng.Float64()*s.cfg.VelocityJitter,
			s.jitter(s.cfg.VelocityJitter),
		)
		if !s.particles.SpawnID(id, pos, vel, s.radius, now) {
			break
		}
		activated++
	}

	return activated
}

// sampleAnnulus 在 [InnerRadius, OuterRadius] 环带内按面积均匀采样
// 高度取地形高度加 SpawnHeight
func (s *ActivationSystem) sampleAnnulus(center vmath.Vec3) vmath.Vec3 {
	inner := s.cfg.InnerRadius
	outer := s.cfg.OuterRadius
	theta := s.rng.Float64() * 2 * math.Pi
	r := math.Sqrt(inner*inner + s.rng.Float64()*(outer*outer-inner*inner))

	x := center.X + r*math.Cos(theta)
	z := center.Z + r*math.Sin(theta)
	y := s.terrain.Height(x, z) + s.cfg.SpawnHeight + s.radius
	return vmath.V3(x, y, z)
}

// jitter 返回 [-amount, amount] 内的随机值
func (s *ActivationSystem) jitter(amount float64) float64 {
	return (s.rng.Float64()*2 - 1) * amount
}
