package components

import (
	"math"
	"time"

	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/physics"
)

// ParticleComponent 是一个池化的水粒子
//
// 槽位在池构造时创建一次，之后只在激活/回收之间切换，永不销毁。
// Active 同时代表"参与物理步进"和"可见"：两者在所有调用点都同步切换，
// 这里合并为一个标志，渲染层通过 Visible() 读取。
type ParticleComponent struct {
	ID   ecs.EntityID
	Body physics.Body

	Active bool

	// LastActivatedAt 最近一次激活的单调时钟时间，仅在 Active 时有意义
	LastActivatedAt time.Time

	// DampingRestoreTicks 临时降低阻尼的剩余 tick 数，归零时恢复基础阻尼
	DampingRestoreTicks int
}

// Visible 返回粒子是否可见
func (p *ParticleComponent) Visible() bool {
	return p.Active
}

// Radius 返回粒子半径
func (p *ParticleComponent) Radius() float64 {
	return p.Body.Radius
}

// Volume 返回体积度量 r³
func (p *ParticleComponent) Volume() float64 {
	return p.Body.Volume()
}

// Value 返回粒子被收集时计入的资源量
// 以 unitMass（默认半径粒子的质量）为一个单位，四舍五入，至少为 1
func (p *ParticleComponent) Value(unitMass float64) int {
	if unitMass <= 0 {
		return 1
	}
	v := int(math.Round(p.Body.Mass / unitMass))
	if v < 1 {
		return 1
	}
	return v
}

// LiveFor 返回自激活以来经过的时间
func (p *ParticleComponent) LiveFor(now time.Time) time.Duration {
	return now.Sub(p.LastActivatedAt)
}
