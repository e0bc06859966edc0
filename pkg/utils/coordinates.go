// Package utils 提供查看器使用的坐标转换工具
//
// # 坐标系统概述
//
//   - **世界坐标**：模拟使用的三维坐标，Y 轴向上，地面在 XZ 平面
//   - **屏幕坐标**：窗口左上角为原点，X 向右，Y 向下
//
// 查看器使用俯视投影：世界 X → 屏幕 X，世界 Z → 屏幕 Y，高度 Y 不参与定位，
// 只用于颜色或大小提示。
//
// # 核心转换公式
//
//	screenX = (world.X - CenterX) * Scale + ScreenWidth/2
//	screenY = (world.Z - CenterZ) * Scale + ScreenHeight/2
package utils

import "github.com/decker502/tidewater/pkg/vmath"

// TopDownView 俯视摄像机
type TopDownView struct {
	CenterX, CenterZ float64 // 屏幕中心对应的世界坐标
	Scale            float64 // 每世界单位的像素数
	ScreenWidth      float64
	ScreenHeight     float64
}

// NewTopDownView 创建以世界原点为中心的俯视摄像机
func NewTopDownView(screenWidth, screenHeight, scale float64) TopDownView {
	if scale <= 0 {
		scale = 1
	}
	return TopDownView{
		Scale:        scale,
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
	}
}

// Follow 把摄像机中心移动到 p 的水平位置
func (v *TopDownView) Follow(p vmath.Vec3) {
	v.CenterX = p.X
	v.CenterZ = p.Z
}

// WorldToScreen 将世界坐标转换为屏幕坐标
func (v TopDownView) WorldToScreen(p vmath.Vec3) (screenX, screenY float64) {
	screenX = (p.X-v.CenterX)*v.Scale + v.ScreenWidth/2
	screenY = (p.Z-v.CenterZ)*v.Scale + v.ScreenHeight/2
	return screenX, screenY
}

// ScreenToWorld 将屏幕坐标转换为高度为 y 的世界坐标
func (v TopDownView) ScreenToWorld(screenX, screenY, y float64) vmath.Vec3 {
	return vmath.V3(
		(screenX-v.ScreenWidth/2)/v.Scale+v.CenterX,
		y,
		(screenY-v.ScreenHeight/2)/v.Scale+v.CenterZ,
	)
}

// Length 将世界长度转换为像素
func (v TopDownView) Length(worldLength float64) float64 {
	return worldLength * v.Scale
}

// OnScreen 判断半径为 radius（像素）的圆是否与屏幕相交
func (v TopDownView) OnScreen(screenX, screenY, radius float64) bool {
	return screenX+radius >= 0 && screenX-radius <= v.ScreenWidth &&
		screenY+radius >= 0 && screenY-radius <= v.ScreenHeight
}
