package systems

import (
	"log"
	"math"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ResourceCollector 接收收集事件的资源计数器
type ResourceCollector interface {
	Collect(amount int) int
}

// AttractionStats 一次吸引/收集的结果
type AttractionStats struct {
	Attracted      int // 受力的粒子数
	Collected      int // 被收集的粒子数
	CollectedValue int // 收集到的资源量（计入计数器前）
}

// AttractionSystem 把粒子吸向目标点，并收集到达目标的粒子
//
// 力的大小: Strength × (1 − d/Distance)² × mass，方向指向目标。
// 距离不超过 CollectionDistance 的粒子立即被收集：回收到池中并计入资源。
// 靠近收集边界时临时降低线性阻尼，使粒子不会因拖拽停在目标附近；
// 临时阻尼由每个粒子上的 tick 倒计时恢复，而不是延迟回调。
type AttractionSystem struct {
	particles *entities.ParticlePool
	resources ResourceCollector
	terrain   game.HeightField
	cfg       config.AttractionConfig
	unitMass  float64

	target    vmath.Vec3
	hasTarget bool

	ids []ecs.EntityID
}

// NewAttractionSystem 创建吸引力系统
//
// 参数:
//   - particles: 粒子池
//   - resources: 资源计数器（收集时调用 Collect）
//   - terrain: 地形高度查询，用于限制目标点的最低高度；可为 nil
//   - cfg: 模拟配置
func NewAttractionSystem(particles *entities.ParticlePool, resources ResourceCollector, terrain game.HeightField, cfg *config.SimulationConfig) *AttractionSystem {
	if terrain == nil {
		terrain = game.FlatTerrain{}
	}
	return &AttractionSystem{
		particles: particles,
		resources: resources,
		terrain:   terrain,
		cfg:       cfg.Attraction,
		unitMass:  cfg.UnitMass(),
		ids:       make([]ecs.EntityID, 0, particles.Capacity()),
	}
}

// SetTarget 设置或清除（nil）吸引目标，下一次 Update 生效
// 目标点高度不低于地形高度 + TargetHeightOffset；非有限坐标被忽略
func (s *AttractionSystem) SetTarget(target *vmath.Vec3) {
	if target == nil {
		s.hasTarget = false
		return
	}
	if !target.IsFinite() {
		log.Printf("[AttractionSystem] Warning: ignoring non-finite target %+v", *target)
		s.hasTarget = false
		return
	}
	t := *target
	if floor := s.terrain.Height(t.X, t.Z) + s.cfg.TargetHeightOffset; t.Y < floor {
		t.Y = floor
	}
	s.target = t
	s.hasTarget = true
}

// Target 返回当前目标点
func (s *AttractionSystem) Target() (vmath.Vec3, bool) {
	return s.target, s.hasTarget
}

// Active 返回吸引模式是否开启
func (s *AttractionSystem) Active() bool {
	return s.hasTarget
}

// Update 每帧调用：有目标时施加吸引力，并推进所有阻尼倒计时
func (s *AttractionSystem) Update() AttractionStats {
	var stats AttractionStats
	if s.hasTarget {
		stats = s.ApplyAttraction(s.target)
	}
	s.tickDamping()
	return stats
}

// ApplyAttraction 对目标范围内的活跃粒子施力或收集
func (s *AttractionSystem) ApplyAttraction(target vmath.Vec3) AttractionStats {
	var stats AttractionStats
	world := s.particles.World()
	dampingZone := s.cfg.CollectionDistance * s.cfg.DampingZoneFactor

	s.ids = s.particles.ActiveIDs(s.ids[:0])
	for _, id := range s.ids {
		p := s.particles.Get(id)

		delta := target.Sub(p.Body.Position)
		dist := delta.Len()
		if math.IsNaN(dist) || dist > s.cfg.Distance {
			continue
		}

		if dist <= s.cfg.CollectionDistance {
			value := p.Value(s.unitMass)
			if s.particles.Release(id) {
				stats.Collected++
				stats.CollectedValue += value
				if s.resources != nil {
					s.resources.Collect(value)
				}
			}
			continue
		}

		dir, length := delta.Normalize()
		if length == 0 {
			continue
		}

		falloff := 1 - dist/s.cfg.Distance
		magnitude := s.cfg.Strength * falloff * falloff * p.Body.Mass
		world.ApplyForce(&p.Body, dir.Scale(magnitude))
		stats.Attracted++

		if dist <= dampingZone {
			p.Body.LinearDamping = s.cfg.ReducedDamping
			p.DampingRestoreTicks = s.cfg.DampingRestoreTick
		}
	}

	return stats
}

// tickDamping 递减阻尼倒计时，归零时恢复基础阻尼
func (s *AttractionSystem) tickDamping() {
	base := s.particles.BaseDamping()
	s.particles.ForEachActive(func(_ ecs.EntityID, p *components.ParticleComponent) bool {
		if p.DampingRestoreTicks <= 0 {
			return true
		}
		p.DampingRestoreTicks--
		if p.DampingRestoreTicks == 0 {
			p.Body.LinearDamping = base
		}
		return true
	})
}
