package components

import (
	"time"

	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/vmath"
)

// ProjectileComponent 是一个池化的弹射物
// 发射时消耗资源，过期（超时或触地）时在落点把等量资源还给世界
type ProjectileComponent struct {
	ID        ecs.EntityID
	Position  vmath.Vec3
	Velocity  vmath.Vec3
	Direction vmath.Vec3 // 发射方向（单位向量）
	FiredAt   time.Time
	Cost      int // 发射时消耗的资源量
	Active    bool
}

// Age 返回弹射物已存在的时间
func (p *ProjectileComponent) Age(now time.Time) time.Duration {
	return now.Sub(p.FiredAt)
}
