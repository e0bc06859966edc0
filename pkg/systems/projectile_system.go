package systems

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ErrInsufficientResource 资源不足，发射被拒绝且不修改任何状态
var ErrInsufficientResource = errors.New("insufficient resource")

// ResourceAccount 弹射物系统使用的资源接口：发射时扣除，无法生成粒子时退还
type ResourceAccount interface {
	Consume(amount int) bool
	Collect(amount int) int
}

// ProjectileStats 一帧内弹射物的处理结果
type ProjectileStats struct {
	Expired      int // 过期（超时或触地）的弹射物数量
	Impacts      int // 其中触地的数量
	BlobsSpawned int // 落点生成的水团数量
	Refunded     int // 因池满而直接退还计数器的资源量
}

// ProjectileSystem 管理弹射物的发射、飞行和过期
//
// 资源闭环：发射时消耗的资源在弹射物过期时以水团形式还给世界，
// 水团的总价值等于发射成本；无法生成的部分直接退还给计数器。
type ProjectileSystem struct {
	projectiles *entities.ProjectilePool
	particles   *entities.ParticlePool
	resources   ResourceAccount
	terrain     game.HeightField
	cfg         config.ProjectileConfig

	gravity       float64
	lifespan      time.Duration
	unitMass      float64
	defaultRadius float64
	maxBlobValue  int

	ids []ecs.EntityID
}

// NewProjectileSystem 创建弹射物系统
//
// 参数:
//   - projectiles: 弹射物池
//   - particles: 粒子池（落点生成水团）
//   - resources: 资源账户
//   - terrain: 地形高度查询，可为 nil
//   - cfg: 模拟配置
func NewProjectileSystem(projectiles *entities.ProjectilePool, particles *entities.ParticlePool, resources ResourceAccount, terrain game.HeightField, cfg *config.SimulationConfig) *ProjectileSystem {
	if terrain == nil {
		terrain = game.FlatTerrain{}
	}

	// 单个水团的最大价值：保证其半径不超过分裂阈值
	ratio := cfg.Merge.SplitThreshold / cfg.Pool.DefaultRadius
	maxBlob := int(math.Floor(ratio*ratio*ratio + 1e-9))
	if maxBlob < 1 {
		maxBlob = 1
	}

	return &ProjectileSystem{
		projectiles:   projectiles,
		particles:     particles,
		resources:     resources,
		terrain:       terrain,
		cfg:           cfg.Projectile,
		gravity:       cfg.World.Gravity * cfg.Projectile.GravityScale,
		lifespan:      cfg.Projectile.LifespanDuration(),
		unitMass:      cfg.UnitMass(),
		defaultRadius: cfg.Pool.DefaultRadius,
		maxBlobValue:  maxBlob,
		ids:           make([]ecs.EntityID, 0, projectiles.Capacity()),
	}
}

// Fire 发射一枚弹射物
//
// 失败情况（均不修改任何状态）：
//   - 方向为零向量或坐标非有限: ErrDegenerateDirection
//   - 没有空闲弹射物槽位: ErrPoolExhausted
//   - 资源不足: ErrInsufficientResource
func (s *ProjectileSystem) Fire(origin, direction vmath.Vec3, now time.Time) (ecs.EntityID, error) {
	if _, l := direction.Normalize(); l == 0 || !origin.IsFinite() {
		return ecs.InvalidEntity, fmt.Errorf("%w: origin=%+v direction=%+v", entities.ErrDegenerateDirection, origin, direction)
	}
	if s.projectiles.InactiveCount() == 0 {
		return ecs.InvalidEntity, fmt.Errorf("%w: %d projectiles in flight", entities.ErrPoolExhausted, s.projectiles.ActiveCount())
	}
	if !s.resources.Consume(s.cfg.Cost) {
		return ecs.InvalidEntity, fmt.Errorf("%w: cost %d", ErrInsufficientResource, s.cfg.Cost)
	}

	id, err := entities.NewProjectile(s.projectiles, origin, direction, s.cfg.Speed, s.cfg.Cost, now)
	if err != nil {
		// 上面已检查过方向和槽位，这里只做兜底：退还资源
		s.resources.Collect(s.cfg.Cost)
		return ecs.InvalidEntity, err
	}

	log.Printf("[ProjectileSystem] fired projectile %d: origin=(%.1f, %.1f, %.1f) cost=%d",
		id, origin.X, origin.Y, origin.Z, s.cfg.Cost)
	return id, nil
}

// Update 推进所有弹射物，并处理过期
//
// 参数:
//   - dt: 本帧物理时间（秒）；本帧物理步进被跳过时传 0，此时只检查超时
//   - now: 当前时间
func (s *ProjectileSystem) Update(dt float64, now time.Time) ProjectileStats {
	var stats ProjectileStats

	s.ids = s.projectiles.ActiveIDs(s.ids[:0])
	for _, id := range s.ids {
		p := s.projectiles.Get(id)

		if dt > 0 {
			p.Velocity.Y += s.gravity * dt
			p.Position = p.Position.Add(p.Velocity.Scale(dt))
		}

		ground := s.terrain.Height(p.Position.X, p.Position.Z)
		hitGround := p.Position.Y <= ground
		timedOut := p.Age(now) >= s.lifespan
		if !hitGround && !timedOut {
			continue
		}

		stats.Expired++
		if hitGround {
			stats.Impacts++
		}
		s.impact(p, now, &stats)
		entities.ReleaseProjectile(s.projectiles, id)
	}

	return stats
}

// Clear 回收所有飞行中的弹射物，不生成水团，携带的资源直接退还计数器
func (s *ProjectileSystem) Clear() int {
	n := 0
	s.ids = s.projectiles.ActiveIDs(s.ids[:0])
	for _, id := range s.ids {
		cost := s.projectiles.Get(id).Cost
		if entities.ReleaseProjectile(s.projectiles, id) {
			s.resources.Collect(cost)
			n++
		}
	}
	return n
}

// Restore 按存档重建一枚飞行中的弹射物
// 优先使用原槽位；无法重建时把携带的资源退还计数器，返回退还量
func (s *ProjectileSystem) Restore(id ecs.EntityID, pos, vel, dir vmath.Vec3, cost int, firedAt time.Time) int {
	if _, err := entities.RestoreProjectile(s.projectiles, id, pos, vel, dir, cost, firedAt); err != nil {
		log.Printf("[ProjectileSystem] restore projectile %d failed: %v (refunded %d)", id, err, cost)
		s.resources.Collect(cost)
		return cost
	}
	return 0
}

// ActiveCount 返回飞行中的弹射物数量
func (s *ProjectileSystem) ActiveCount() int {
	return s.projectiles.ActiveCount()
}

// ForEachActive 遍历飞行中的弹射物（只读）
func (s *ProjectileSystem) ForEachActive(fn func(p *components.ProjectileComponent) bool) {
	s.projectiles.ForEachActive(func(_ ecs.EntityID, p *components.ProjectileComponent) bool {
		return fn(p)
	})
}

// impact 在落点生成总价值等于发射成本的水团
func (s *ProjectileSystem) impact(p *components.ProjectileComponent, now time.Time, stats *ProjectileStats) {
	remaining := p.Cost
	point := p.Position
	if !point.IsFinite() {
		// 位置已损坏，无法在世界中生成，全部退还
		s.refund(p, remaining, stats)
		return
	}

	for k := 0; remaining > 0; k++ {
		value := remaining
		if value > s.maxBlobValue {
			value = s.maxBlobValue
		}
		radius := math.Cbrt(float64(value) * s.unitMass)

		pos := point
		if k > 0 {
			// 后续水团沿黄金角螺旋展开，避免在同一点重叠
			angle := float64(k) * 2.39996
			pos.X += math.Cos(angle) * radius * 2
			pos.Z += math.Sin(angle) * radius * 2
		}
		if floor := s.terrain.Height(pos.X, pos.Z) + radius; pos.Y < floor {
			pos.Y = floor
		}

		if _, ok := s.particles.Spawn(pos, vmath.Vec3{}, radius, now); !ok {
			s.refund(p, remaining, stats)
			return
		}
		stats.BlobsSpawned++
		remaining -= value
	}
}

// refund 把无法生成为水团的资源直接退还计数器
func (s *ProjectileSystem) refund(p *components.ProjectileComponent, amount int, stats *ProjectileStats) {
	if amount <= 0 {
		return
	}
	s.resources.Collect(amount)
	stats.Refunded += amount
	log.Printf("[ProjectileSystem] projectile %d impact: refunded %d (cannot spawn blob, active=%d)",
		p.ID, amount, s.particles.ActiveCount())
}
