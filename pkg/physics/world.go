package physics

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/decker502/tidewater/pkg/vmath"
)

// ErrInvalidTimestep 表示 Step 收到的 dt 不在合理范围内
// 调用方应跳过本帧物理步进，而不是重试
var ErrInvalidTimestep = errors.New("invalid timestep")

// WorldConfig 物理世界参数
type WorldConfig struct {
	Gravity        vmath.Vec3
	GroundY        float64 // 静态地面平面高度
	MaxStep        float64 // 单步 dt 上限（秒），超过则拒绝
	Restitution    float64 // 地面反弹系数
	GroundFriction float64 // 触地时水平速度的衰减率（每秒）
	SleepSpeed     float64 // 低于该速度开始累计休眠时间
	SleepTime      float64 // 低速持续超过该时间后进入休眠
}

// DefaultWorldConfig 返回默认物理参数
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Gravity:        vmath.V3(0, -9.82, 0),
		GroundY:        0,
		MaxStep:        0.1,
		Restitution:    0.2,
		GroundFriction: 2.0,
		SleepSpeed:     0.1,
		SleepTime:      1.0,
	}
}

// World 拥有全局步进、重力和静态地面
//
// World 由调用方显式创建并持有，不存在全局单例；
// 多个 World 可以在同一进程（例如测试）中独立运行。
type World struct {
	cfg    WorldConfig
	bodies []*Body
}

// NewWorld 创建物理世界
//
// 参数:
//   - cfg: 物理参数
//   - capacityHint: 预期刚体数量，用于预分配，避免运行时扩容
func NewWorld(cfg WorldConfig, capacityHint int) *World {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &World{
		cfg:    cfg,
		bodies: make([]*Body, 0, capacityHint),
	}
}

// Config 返回物理参数
func (w *World) Config() WorldConfig {
	return w.cfg
}

// AddBody 将刚体加入世界（幂等）
// 返回 true 表示本次调用实际加入
func (w *World) AddBody(b *Body) bool {
	if b == nil || b.world == w {
		return false
	}
	if b.world != nil {
		b.world.RemoveBody(b)
	}
	b.world = w
	b.index = len(w.bodies)
	w.bodies = append(w.bodies, b)
	return true
}

// RemoveBody 将刚体移出世界（幂等）
// 返回 true 表示本次调用实际移除
func (w *World) RemoveBody(b *Body) bool {
	if b == nil || b.world != w {
		return false
	}
	last := len(w.bodies) - 1
	moved := w.bodies[last]
	w.bodies[b.index] = moved
	moved.index = b.index
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]

	b.world = nil
	b.index = -1
	b.force = vmath.Vec3{}
	return true
}

// Wake 唤醒刚体（幂等）
func (w *World) Wake(b *Body) {
	if b == nil {
		return
	}
	b.sleeping = false
	b.sleepTimer = 0
}

// ApplyForce 累积一个外力，在下一次 Step 中生效，并唤醒刚体
func (w *World) ApplyForce(b *Body, f vmath.Vec3) {
	if b == nil || !f.IsFinite() {
		return
	}
	b.force = b.force.Add(f)
	w.Wake(b)
}

// ApplyImpulse 立即按 冲量/质量 修改速度，并唤醒刚体
func (w *World) ApplyImpulse(b *Body, j vmath.Vec3) {
	if b == nil || b.Mass <= 0 || !j.IsFinite() {
		return
	}
	b.Velocity = b.Velocity.Add(j.Scale(1.0 / b.Mass))
	w.Wake(b)
}

// BodyCount 返回世界中的刚体数量
func (w *World) BodyCount() int {
	return len(w.bodies)
}

// AwakeCount 返回未休眠的刚体数量
func (w *World) AwakeCount() int {
	n := 0
	for _, b := range w.bodies {
		if !b.sleeping {
			n++
		}
	}
	return n
}

// Step 推进一个物理步
//
// dt 非正、非有限或超过 MaxStep 时返回 ErrInvalidTimestep，且不修改任何状态。
func (w *World) Step(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) || dt > w.cfg.MaxStep {
		return fmt.Errorf("%w: dt=%.4f (max %.4f)", ErrInvalidTimestep, dt, w.cfg.MaxStep)
	}

	sleepSpeedSq := w.cfg.SleepSpeed * w.cfg.SleepSpeed

	for _, b := range w.bodies {
		if b.sleeping {
			b.force = vmath.Vec3{}
			continue
		}

		prevPos := b.Position

		acc := w.cfg.Gravity
		if b.Mass > 0 {
			acc = acc.Add(b.force.Scale(1.0 / b.Mass))
		}
		b.force = vmath.Vec3{}

		b.Velocity = b.Velocity.Add(acc.Scale(dt))
		if b.LinearDamping > 0 {
			damping := math.Min(b.LinearDamping, 0.999)
			b.Velocity = b.Velocity.Scale(math.Pow(1-damping, dt))
		}
		b.Position = b.Position.Add(b.Velocity.Scale(dt))

		w.resolveGround(b, dt)

		if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
			log.Printf("[PhysicsWorld] Warning: non-finite state on body (pos=%+v vel=%+v), resetting to rest", b.Position, b.Velocity)
			b.Position = prevPos
			b.Velocity = vmath.Vec3{}
			continue
		}

		if b.Velocity.LenSq() < sleepSpeedSq {
			b.sleepTimer += dt
			if b.sleepTimer >= w.cfg.SleepTime {
				b.sleeping = true
				b.Velocity = vmath.Vec3{}
			}
		} else {
			b.sleepTimer = 0
		}
	}

	return nil
}

// resolveGround 地面半空间测试：球体底部低于地面时推回并反弹
func (w *World) resolveGround(b *Body, dt float64) {
	floor := w.cfg.GroundY + b.Radius
	if b.Position.Y >= floor {
		return
	}
	b.Position.Y = floor
	if b.Velocity.Y < 0 {
		b.Velocity.Y = -b.Velocity.Y * w.cfg.Restitution
		fric := math.Max(0, 1-w.cfg.GroundFriction*dt)
		b.Velocity.X *= fric
		b.Velocity.Z *= fric
	}
}
