// Package vmath 提供模拟核心使用的三维向量运算
package vmath

import "math"

// Vec3 is a float64 3D vector. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

// V3 构造向量的简写
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalize returns the unit vector and the input length.
// A zero or non-finite vector yields (Vec3{}, 0).
func (v Vec3) Normalize() (Vec3, float64) {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}, 0
	}
	inv := 1.0 / l
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}, l
}

// PlanarDistSq 返回 XZ 平面上的距离平方（忽略高度）
func (v Vec3) PlanarDistSq(o Vec3) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return dx*dx + dz*dz
}

// DistSq 返回两点间距离平方
func (v Vec3) DistSq(o Vec3) float64 {
	return v.Sub(o).LenSq()
}

// IsFinite 检查三个分量是否都是有限值（非 NaN、非 Inf）
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Lerp 线性插值
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// WeightedAverage 返回 (a·wa + b·wb)/(wa+wb)
// 权重和为零时返回 false，调用方应跳过该操作
func WeightedAverage(a Vec3, wa float64, b Vec3, wb float64) (Vec3, bool) {
	total := wa + wb
	if total <= 0 || !isFinite(total) {
		return Vec3{}, false
	}
	return a.Scale(wa).Add(b.Scale(wb)).Scale(1.0 / total), true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsFiniteScalar 检查标量是否为有限值
func IsFiniteScalar(f float64) bool {
	return isFinite(f)
}
