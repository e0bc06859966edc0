package entities

import (
	"fmt"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/physics"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ParticlePool 管理固定容量的水粒子池
//
// 职责：
//   - 构造时一次性创建所有粒子（非活跃、默认半径、停放在世界之外）
//   - 激活：分配位置/速度/半径，加入物理世界，记录激活时间
//   - 回收：清零速度、停放到 y=ParkedY、恢复阻尼、移出物理世界，槽位归还空闲栈
//   - 强制活跃粒子数上限 MaxLiveCount
//
// 池满或达到活跃上限属于"容量耗尽"，只返回 false，由调用方跳过本次生成。
type ParticlePool struct {
	pool  *ecs.Pool[components.ParticleComponent]
	world *physics.World

	maxLive       int
	defaultRadius float64
	baseDamping   float64
}

// NewParticlePool 创建粒子池
//
// 参数:
//   - world: 物理世界（激活的粒子会加入其中）
//   - cfg: 模拟配置（使用 Pool 和 World.LinearDamping）
//
// 返回:
//   - *ParticlePool: 粒子池
//   - error: 参数无效时返回错误
func NewParticlePool(world *physics.World, cfg *config.SimulationConfig) (*ParticlePool, error) {
	if world == nil {
		return nil, fmt.Errorf("physics world cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("simulation config cannot be nil")
	}
	if cfg.Pool.Capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", cfg.Pool.Capacity)
	}

	pp := &ParticlePool{
		pool:          ecs.NewPool[components.ParticleComponent](cfg.Pool.Capacity),
		world:         world,
		maxLive:       cfg.Pool.MaxLiveCount,
		defaultRadius: cfg.Pool.DefaultRadius,
		baseDamping:   cfg.World.LinearDamping,
	}
	if pp.maxLive <= 0 || pp.maxLive > cfg.Pool.Capacity {
		pp.maxLive = cfg.Pool.Capacity
	}

	for i := 0; i < cfg.Pool.Capacity; i++ {
		id := ecs.EntityID(i)
		p := pp.pool.Get(id)
		p.ID = id
		pp.park(p)
	}

	return pp, nil
}

// Spawn 取出任意空闲粒子并激活
// 池满、达到活跃上限或参数无效时返回 (InvalidEntity, false)
func (pp *ParticlePool) Spawn(pos, vel vmath.Vec3, radius float64, now time.Time) (ecs.EntityID, bool) {
	if !pp.CanSpawn() || !validSpawn(pos, vel, radius) {
		return ecs.InvalidEntity, false
	}
	id, p, ok := pp.pool.Acquire()
	if !ok {
		return ecs.InvalidEntity, false
	}
	pp.activate(p, pos, vel, radius, now)
	return id, true
}

// SpawnID 激活指定的空闲粒子（激活策略用它实现均匀随机选择，恢复存档时用它放回原槽位）
func (pp *ParticlePool) SpawnID(id ecs.EntityID, pos, vel vmath.Vec3, radius float64, now time.Time) bool {
	if !pp.CanSpawn() || !validSpawn(pos, vel, radius) {
		return false
	}
	p, ok := pp.pool.AcquireID(id)
	if !ok {
		return false
	}
	pp.activate(p, pos, vel, radius, now)
	return true
}

// Release 回收活跃粒子（幂等）
// 返回 true 表示本次调用实际回收
func (pp *ParticlePool) Release(id ecs.EntityID) bool {
	if !pp.pool.IsActive(id) {
		return false
	}
	p := pp.pool.Get(id)
	pp.world.RemoveBody(&p.Body)
	pp.park(p)
	return pp.pool.Release(id)
}

// ReleaseAll 回收所有活跃粒子，返回回收数量
func (pp *ParticlePool) ReleaseAll() int {
	n := 0
	pp.pool.ForEachActive(func(id ecs.EntityID, _ *components.ParticleComponent) bool {
		if pp.Release(id) {
			n++
		}
		return true
	})
	return n
}

// SetRadius 修改活跃粒子半径并同步质量
func (pp *ParticlePool) SetRadius(id ecs.EntityID, radius float64) bool {
	if !pp.pool.IsActive(id) || !(radius > 0) || !vmath.IsFiniteScalar(radius) {
		return false
	}
	pp.pool.Get(id).Body.SetRadius(radius)
	return true
}

// Get 返回粒子（无论是否活跃）；ID 越界返回 nil
func (pp *ParticlePool) Get(id ecs.EntityID) *components.ParticleComponent {
	return pp.pool.Get(id)
}

// IsActive 检查粒子是否活跃
func (pp *ParticlePool) IsActive(id ecs.EntityID) bool {
	return pp.pool.IsActive(id)
}

// CanSpawn 检查是否还有可激活的名额
func (pp *ParticlePool) CanSpawn() bool {
	return pp.pool.InactiveCount() > 0 && pp.pool.ActiveCount() < pp.maxLive
}

// ActiveIDs 按升序追加活跃 ID
func (pp *ParticlePool) ActiveIDs(dst []ecs.EntityID) []ecs.EntityID {
	return pp.pool.ActiveIDs(dst)
}

// InactiveIDs 按升序追加空闲 ID
func (pp *ParticlePool) InactiveIDs(dst []ecs.EntityID) []ecs.EntityID {
	return pp.pool.InactiveIDs(dst)
}

// ForEachActive 按 ID 升序遍历活跃粒子
func (pp *ParticlePool) ForEachActive(fn func(id ecs.EntityID, p *components.ParticleComponent) bool) {
	pp.pool.ForEachActive(fn)
}

func (pp *ParticlePool) ActiveCount() int   { return pp.pool.ActiveCount() }
func (pp *ParticlePool) InactiveCount() int { return pp.pool.InactiveCount() }
func (pp *ParticlePool) Capacity() int      { return pp.pool.Capacity() }
func (pp *ParticlePool) MaxLive() int       { return pp.maxLive }

// DefaultRadius 返回默认粒子半径
func (pp *ParticlePool) DefaultRadius() float64 {
	return pp.defaultRadius
}

// BaseDamping 返回粒子的基础线性阻尼
func (pp *ParticlePool) BaseDamping() float64 {
	return pp.baseDamping
}

// World 返回粒子所在的物理世界
func (pp *ParticlePool) World() *physics.World {
	return pp.world
}

// activate 写入激活状态并加入物理世界
func (pp *ParticlePool) activate(p *components.ParticleComponent, pos, vel vmath.Vec3, radius float64, now time.Time) {
	p.Body.ResetState()
	p.Body.Position = pos
	p.Body.Velocity = vel
	p.Body.SetRadius(radius)
	p.Body.LinearDamping = pp.baseDamping
	p.Active = true
	p.LastActivatedAt = now
	p.DampingRestoreTicks = 0
	pp.world.AddBody(&p.Body)
}

// park 把粒子重置为非活跃状态并停放到世界之外
func (pp *ParticlePool) park(p *components.ParticleComponent) {
	p.Body.ResetState()
	p.Body.Position = vmath.V3(0, config.ParkedY, 0)
	p.Body.SetRadius(pp.defaultRadius)
	p.Body.LinearDamping = pp.baseDamping
	p.Active = false
	p.LastActivatedAt = time.Time{}
	p.DampingRestoreTicks = 0
}

// validSpawn 拒绝非正半径和非有限坐标，避免 NaN 进入持久状态
func validSpawn(pos, vel vmath.Vec3, radius float64) bool {
	return radius > 0 && vmath.IsFiniteScalar(radius) && pos.IsFinite() && vel.IsFinite()
}
