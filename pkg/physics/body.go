// Package physics 实现模拟核心使用的最小刚体积分器
//
// 职责范围：
//   - 重力累积、速度/位置积分（半隐式欧拉）
//   - 静态地面半空间碰撞
//   - 休眠状态（低速持续一段时间后跳过积分，直到被唤醒）
//
// 不负责物体之间的碰撞响应；基于距离的交互（合并/分裂、吸引）由 systems 包显式处理。
package physics

import "github.com/decker502/tidewater/pkg/vmath"

// Body 是一个球形刚体
//
// Velocity 只应由积分器和力/冲量接口修改。
// Mass 始终等于 Radius³（单位密度），通过 SetRadius 维护。
type Body struct {
	Position      vmath.Vec3
	Velocity      vmath.Vec3
	Radius        float64
	Mass          float64
	LinearDamping float64 // 线性阻尼，取值 [0, 1)

	force      vmath.Vec3
	sleeping   bool
	sleepTimer float64

	world *World
	index int // 在 world.bodies 中的下标
}

// SetRadius 设置半径并同步质量
func (b *Body) SetRadius(r float64) {
	b.Radius = r
	b.Mass = r * r * r
}

// Volume 返回体积度量（r³，与质量相同的单位）
func (b *Body) Volume() float64 {
	return b.Radius * b.Radius * b.Radius
}

// Sleeping 返回刚体是否处于休眠状态
func (b *Body) Sleeping() bool {
	return b.sleeping
}

// InWorld 返回刚体当前是否已加入某个物理世界
func (b *Body) InWorld() bool {
	return b.world != nil
}

// PendingForce 返回本帧累积但尚未积分的外力
func (b *Body) PendingForce() vmath.Vec3 {
	return b.force
}

// ResetState 清零速度、外力和休眠计时
func (b *Body) ResetState() {
	b.Velocity = vmath.Vec3{}
	b.force = vmath.Vec3{}
	b.sleeping = false
	b.sleepTimer = 0
}
