package game

import (
	"math"

	"github.com/decker502/tidewater/pkg/vmath"
)

// HeightField 地形高度查询（由外部地形生成模块提供）
type HeightField interface {
	Height(x, z float64) float64
}

// HeightFunc 让普通函数满足 HeightField
type HeightFunc func(x, z float64) float64

// Height 实现 HeightField
func (f HeightFunc) Height(x, z float64) float64 {
	return f(x, z)
}

// FlatTerrain 固定高度的平坦地形
type FlatTerrain struct {
	Y float64
}

// Height 实现 HeightField
func (t FlatTerrain) Height(x, z float64) float64 {
	return t.Y
}

// WaveTerrain 正弦起伏地形，用于演示与压测
type WaveTerrain struct {
	Amplitude  float64
	Wavelength float64
}

// Height 实现 HeightField
func (t WaveTerrain) Height(x, z float64) float64 {
	if t.Wavelength <= 0 {
		return 0
	}
	k := 2 * math.Pi / t.Wavelength
	return t.Amplitude * math.Sin(x*k) * math.Cos(z*k)
}

// AgentLocator 查询当前玩家（代理）位置
// 没有显式指定激活中心时，以该位置作为默认激活中心
type AgentLocator interface {
	AgentPosition() vmath.Vec3
}

// StaticAgent 位置固定的代理
type StaticAgent struct {
	Position vmath.Vec3
}

// AgentPosition 实现 AgentLocator
func (a *StaticAgent) AgentPosition() vmath.Vec3 {
	return a.Position
}
