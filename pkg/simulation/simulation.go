// Package simulation 组装流体粒子模拟核心
//
// Simulation 持有物理世界、粒子池、资源计数器和各个系统，
// 由外部驱动者每帧调用一次 Update(delta)。所有操作都在调用线程内同步完成，
// 不启动后台 goroutine，也不做加锁；渲染层只读取快照。
//
// 帧内顺序固定：
//
//	物理步进 → 回收远处粒子 → 在激活中心附近补足粒子 → 吸引/收集
//	→ 合并/分裂（隔帧） → 弹射物 → 外观回调（每 CosmeticInterval 帧）
package simulation

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/physics"
	"github.com/decker502/tidewater/pkg/systems"
	"github.com/decker502/tidewater/pkg/vmath"
)

// FrameStats 一帧的执行结果
type FrameStats struct {
	Tick int

	// PhysicsSkipped delta 无效，本帧跳过了物理步进和弹射物运动
	PhysicsSkipped bool

	Released  int // 因距离过远被回收的粒子
	Activated int // 在激活中心附近新激活的粒子

	Attraction  systems.AttractionStats
	Merge       systems.MergeStats
	Projectiles systems.ProjectileStats

	ActiveCount int
	Resources   int
}

// Simulation 流体粒子模拟
type Simulation struct {
	cfg *config.SimulationConfig

	world       *physics.World
	particles   *entities.ParticlePool
	projectiles *entities.ProjectilePool
	resources   *game.ResourceCounter

	terrain game.HeightField
	agent   game.AgentLocator
	clock   game.Clock
	rng     *rand.Rand

	activation *systems.ActivationSystem
	merge      *systems.MergeSystem
	attraction *systems.AttractionSystem
	projectile *systems.ProjectileSystem

	center    vmath.Vec3
	hasCenter bool

	tick     int
	cosmetic CosmeticHook
	snapshot []ParticleState
}

// New 创建模拟
//
// 参数:
//   - cfg: 模拟配置，nil 时使用 DefaultSimulationConfig
//   - opts: 可选依赖（地形、代理、时钟、随机源、资源计数器、外观回调）
//
// 返回:
//   - *Simulation: 模拟实例（所有粒子已预分配，处于非活跃状态）
//   - error: 配置无效时返回错误
func New(cfg *config.SimulationConfig, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultSimulationConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	s := &Simulation{
		cfg:     cfg,
		terrain: game.FlatTerrain{Y: cfg.World.GroundY},
		agent:   &game.StaticAgent{},
		clock:   game.NewSystemClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.resources == nil {
		s.resources = game.NewResourceCounter(cfg.Resources.Capacity, cfg.Resources.Initial)
	}

	s.world = physics.NewWorld(worldConfig(cfg), cfg.Pool.Capacity)

	particles, err := entities.NewParticlePool(s.world, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create particle pool: %w", err)
	}
	s.particles = particles
	s.projectiles = entities.NewProjectilePool(cfg.Projectile.Capacity)

	s.activation = systems.NewActivationSystem(s.particles, s.terrain, s.rng, cfg)
	s.merge = systems.NewMergeSystem(s.particles, s.rng, cfg)
	s.attraction = systems.NewAttractionSystem(s.particles, s.resources, s.terrain, cfg)
	s.projectile = systems.NewProjectileSystem(s.projectiles, s.particles, s.resources, s.terrain, cfg)

	s.snapshot = make([]ParticleState, 0, cfg.Pool.MaxLiveCount)

	log.Printf("[Simulation] Created: capacity=%d maxLive=%d projectiles=%d",
		cfg.Pool.Capacity, cfg.Pool.MaxLiveCount, cfg.Projectile.Capacity)
	return s, nil
}

// worldConfig 把 YAML 配置转换为物理世界参数
func worldConfig(cfg *config.SimulationConfig) physics.WorldConfig {
	return physics.WorldConfig{
		Gravity:        vmath.V3(0, cfg.World.Gravity, 0),
		GroundY:        cfg.World.GroundY,
		MaxStep:        cfg.World.MaxStep,
		Restitution:    cfg.World.Restitution,
		GroundFriction: cfg.World.GroundFriction,
		SleepSpeed:     cfg.World.SleepSpeed,
		SleepTime:      cfg.World.SleepTime,
	}
}

// Update 推进一帧
//
// delta 无效（非正、非有限或超过 MaxStep）时只跳过物理步进和弹射物运动，
// 其余系统照常运行。
func (s *Simulation) Update(delta float64) FrameStats {
	s.tick++
	now := s.clock.Now()
	stats := FrameStats{Tick: s.tick}

	physicsDt := delta
	if err := s.world.Step(delta); err != nil {
		log.Printf("[Simulation] Warning: tick %d physics step skipped: %v", s.tick, err)
		stats.PhysicsSkipped = true
		physicsDt = 0
	}

	stats.Released, stats.Activated = s.activation.Update(s.ActivationCenter(), now)
	stats.Attraction = s.attraction.Update()
	stats.Merge = s.merge.Update(s.attraction.Active(), now)
	stats.Projectiles = s.projectile.Update(physicsDt, now)

	if s.cosmetic != nil && s.tick%s.cfg.Frame.CosmeticInterval == 0 {
		s.snapshot = s.Snapshot(s.snapshot[:0])
		s.cosmetic(s.tick, s.snapshot)
	}

	stats.ActiveCount = s.particles.ActiveCount()
	stats.Resources = s.resources.Amount()
	return stats
}

// CreateParticle 在指定位置激活一个默认半径的粒子
// 池满、达到活跃上限或坐标无效时返回 (InvalidEntity, false)
func (s *Simulation) CreateParticle(pos, vel vmath.Vec3) (ecs.EntityID, bool) {
	return s.particles.Spawn(pos, vel, s.particles.DefaultRadius(), s.clock.Now())
}

// SetAttractionTarget 设置吸引目标，nil 关闭吸引模式；下一帧生效
func (s *Simulation) SetAttractionTarget(target *vmath.Vec3) {
	s.attraction.SetTarget(target)
}

// AttractionTarget 返回当前吸引目标
func (s *Simulation) AttractionTarget() (vmath.Vec3, bool) {
	return s.attraction.Target()
}

// SetActivationCenter 显式指定激活中心，nil 恢复为代理位置
func (s *Simulation) SetActivationCenter(center *vmath.Vec3) {
	if center == nil || !center.IsFinite() {
		s.hasCenter = false
		return
	}
	s.center = *center
	s.hasCenter = true
}

// ActivationCenter 返回当前激活中心
func (s *Simulation) ActivationCenter() vmath.Vec3 {
	if s.hasCenter {
		return s.center
	}
	return s.agent.AgentPosition()
}

// ResourceAmount 返回当前资源量
func (s *Simulation) ResourceAmount() int {
	return s.resources.Amount()
}

// ResourceCapacity 返回资源上限
func (s *Simulation) ResourceCapacity() int {
	return s.resources.Capacity()
}

// SetResourceAmount 直接设置资源量（限制到 [0, Capacity]）
func (s *Simulation) SetResourceAmount(n int) {
	s.resources.SetAmount(n)
}

// Consume 扣除资源，不足时返回 false 且不修改计数器
func (s *Simulation) Consume(n int) bool {
	return s.resources.Consume(n)
}

// Fire 发射弹射物
func (s *Simulation) Fire(origin, direction vmath.Vec3) (ecs.EntityID, error) {
	return s.projectile.Fire(origin, direction, s.clock.Now())
}

// Clear 回收所有活跃粒子和弹射物（场景卸载时调用）
// 弹射物携带的资源退还计数器；返回回收的粒子数量
func (s *Simulation) Clear() int {
	n := s.particles.ReleaseAll()
	s.projectile.Clear()
	s.attraction.SetTarget(nil)
	return n
}

// ActiveCount 返回活跃粒子数量
func (s *Simulation) ActiveCount() int {
	return s.particles.ActiveCount()
}

// PoolCapacity 返回粒子池容量
func (s *Simulation) PoolCapacity() int {
	return s.particles.Capacity()
}

// ProjectileCount 返回飞行中的弹射物数量
func (s *Simulation) ProjectileCount() int {
	return s.projectile.ActiveCount()
}

// ForEachProjectile 遍历飞行中的弹射物（只读）
func (s *Simulation) ForEachProjectile(fn func(p *components.ProjectileComponent) bool) {
	s.projectile.ForEachActive(fn)
}

// Tick 返回已执行的帧数
func (s *Simulation) Tick() int {
	return s.tick
}

// Config 返回模拟配置（只读）
func (s *Simulation) Config() *config.SimulationConfig {
	return s.cfg
}

// Terrain 返回地形高度查询
func (s *Simulation) Terrain() game.HeightField {
	return s.terrain
}
