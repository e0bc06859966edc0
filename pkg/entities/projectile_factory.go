package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ErrPoolExhausted 池中没有空闲槽位
var ErrPoolExhausted = errors.New("pool exhausted")

// ErrDegenerateDirection 发射方向为零向量或非有限值
var ErrDegenerateDirection = errors.New("degenerate direction")

// ProjectilePool 弹射物池（与粒子池并行的固定容量池）
type ProjectilePool = ecs.Pool[components.ProjectileComponent]

// NewProjectilePool 创建弹射物池
func NewProjectilePool(capacity int) *ProjectilePool {
	pool := ecs.NewPool[components.ProjectileComponent](capacity)
	for i := 0; i < capacity; i++ {
		pool.Get(ecs.EntityID(i)).ID = ecs.EntityID(i)
	}
	return pool
}

// NewProjectile 从池中分配弹射物
// 弹射物从 origin 出发，初速度为 单位方向 × speed
//
// 参数:
//   - pool: 弹射物池
//   - origin: 发射点
//   - direction: 发射方向（无需归一化）
//   - speed: 固定初速度
//   - cost: 该弹射物携带的资源量
//   - now: 发射时间
//
// 返回:
//   - ecs.EntityID: 弹射物 ID，失败时为 InvalidEntity
//   - error: 方向无效（ErrDegenerateDirection）或池满（ErrPoolExhausted）
func NewProjectile(pool *ProjectilePool, origin, direction vmath.Vec3, speed float64, cost int, now time.Time) (ecs.EntityID, error) {
	if pool == nil {
		return ecs.InvalidEntity, fmt.Errorf("projectile pool cannot be nil")
	}
	if !origin.IsFinite() {
		return ecs.InvalidEntity, fmt.Errorf("%w: origin %+v", ErrDegenerateDirection, origin)
	}
	dir, length := direction.Normalize()
	if length == 0 {
		return ecs.InvalidEntity, fmt.Errorf("%w: %+v", ErrDegenerateDirection, direction)
	}

	id, p, ok := pool.Acquire()
	if !ok {
		return ecs.InvalidEntity, fmt.Errorf("%w: %d projectiles in flight", ErrPoolExhausted, pool.ActiveCount())
	}

	p.ID = id
	p.Position = origin
	p.Direction = dir
	p.Velocity = dir.Scale(speed)
	p.FiredAt = now
	p.Cost = cost
	p.Active = true

	return id, nil
}

// RestoreProjectile 按存档重建弹射物
// 优先获取槽位 id，越界或已被占用时取任意空闲槽位
//
// 返回:
//   - ecs.EntityID: 实际使用的槽位
//   - error: 坐标非有限（ErrDegenerateDirection）或池满（ErrPoolExhausted）
func RestoreProjectile(pool *ProjectilePool, id ecs.EntityID, pos, vel, dir vmath.Vec3, cost int, firedAt time.Time) (ecs.EntityID, error) {
	if pool == nil {
		return ecs.InvalidEntity, fmt.Errorf("projectile pool cannot be nil")
	}
	if !pos.IsFinite() || !vel.IsFinite() || !dir.IsFinite() {
		return ecs.InvalidEntity, fmt.Errorf("%w: position=%+v velocity=%+v", ErrDegenerateDirection, pos, vel)
	}

	p, ok := pool.AcquireID(id)
	if !ok {
		id, p, ok = pool.Acquire()
		if !ok {
			return ecs.InvalidEntity, fmt.Errorf("%w: %d projectiles in flight", ErrPoolExhausted, pool.ActiveCount())
		}
	}

	p.ID = id
	p.Position = pos
	p.Velocity = vel
	p.Direction = dir
	p.FiredAt = firedAt
	p.Cost = cost
	p.Active = true
	return id, nil
}

// ReleaseProjectile 回收弹射物（幂等）
func ReleaseProjectile(pool *ProjectilePool, id ecs.EntityID) bool {
	if !pool.IsActive(id) {
		return false
	}
	p := pool.Get(id)
	p.Position = vmath.Vec3{}
	p.Velocity = vmath.Vec3{}
	p.Direction = vmath.Vec3{}
	p.FiredAt = time.Time{}
	p.Cost = 0
	p.Active = false
	return pool.Release(id)
}
