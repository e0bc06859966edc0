package config

// ========================================
// 粒子池常量
// ========================================

const (
	// DefaultPoolCapacity 默认池容量
	DefaultPoolCapacity = 200

	// DefaultMaxLiveCount 默认活跃粒子上限
	DefaultMaxLiveCount = 120

	// DefaultParticleRadius 默认粒子半径（也是一个资源单位的体积基准）
	DefaultParticleRadius = 0.5

	// ParkedY 非活跃粒子的停放高度
	// 远离模拟区域，避免非活跃粒子被误检测到
	ParkedY = -1000.0
)

// ========================================
// 帧调度常量
// ========================================

const (
	// MaxFrameDelta 单帧 dt 上限（秒）
	// 超过该值说明发生了卡顿，本帧物理步进被跳过
	MaxFrameDelta = 0.1

	// MinLiveSeconds 粒子激活后的最短存活时间
	// 防止在活跃半径边缘生成的粒子被立即回收后又重新生成
	MinLiveSeconds = 2.0
)

// ========================================
// 合并/分裂常量
// ========================================

const (
	// MergeInterval 合并扫描间隔（tick）
	MergeInterval = 2

	// MergeFactor 合并距离系数：dist² < (r_i+r_j)² × factor
	MergeFactor = 0.25

	// AttractMergeFactor 吸引模式下的合并距离系数
	// 放宽合并条件，使被汇聚的水流更容易融合
	AttractMergeFactor = 0.5

	// SplitThreshold 合并后半径超过该值触发分裂
	SplitThreshold = 2.0

	// PostSplitRadius 分裂后主体半径
	PostSplitRadius = 1.2

	// SplitChildRadius 分裂出的新粒子半径
	SplitChildRadius = 1.0
)

// ========================================
// 阻尼常量
// ========================================

const (
	// DefaultLinearDamping 粒子基础线性阻尼
	DefaultLinearDamping = 0.3

	// ReducedLinearDamping 靠近吸引目标时的临时阻尼
	ReducedLinearDamping = 0.01

	// DampingRestoreTicks 临时阻尼保持的 tick 数（60fps 下约 0.5 秒）
	DampingRestoreTicks = 30
)
