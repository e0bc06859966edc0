package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/decker502/tidewater/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath 默认配置文件位置（同时嵌入到二进制中）
const DefaultConfigPath = "data/simulation.yaml"

// SimulationConfig 流体粒子模拟配置
//
// 配置文件位置: data/simulation.yaml
type SimulationConfig struct {
	Pool       PoolConfig       `yaml:"pool" json:"pool,omitempty"`
	World      WorldConfig      `yaml:"world" json:"world,omitempty"`
	Activation ActivationConfig `yaml:"activation" json:"activation,omitempty"`
	Merge      MergeConfig      `yaml:"merge" json:"merge,omitempty"`
	Attraction AttractionConfig `yaml:"attraction" json:"attraction,omitempty"`
	Resources  ResourceConfig   `yaml:"resources" json:"resources,omitempty"`
	Projectile ProjectileConfig `yaml:"projectile" json:"projectile,omitempty"`
	Frame      FrameConfig      `yaml:"frame" json:"frame,omitempty"`
}

// PoolConfig 实体池配置
type PoolConfig struct {
	// Capacity 池容量（构造后固定）
	Capacity int `yaml:"capacity" json:"capacity,omitempty" jsonschema:"minimum=1"`

	// MaxLiveCount 同时活跃粒子的硬上限
	MaxLiveCount int `yaml:"maxLiveCount" json:"maxLiveCount,omitempty" jsonschema:"minimum=1,description=Hard ceiling on simultaneously active particles"`

	// DefaultRadius 新粒子半径，同时定义一个资源单位对应的体积
	DefaultRadius float64 `yaml:"defaultRadius" json:"defaultRadius,omitempty" jsonschema:"minimum=0"`
}

// WorldConfig 物理世界配置
type WorldConfig struct {
	Gravity        float64 `yaml:"gravity" json:"gravity,omitempty"` // Y 轴重力加速度（负值向下）
	GroundY        float64 `yaml:"groundY" json:"groundY,omitempty"`
	MaxStep        float64 `yaml:"maxStep" json:"maxStep,omitempty" jsonschema:"minimum=0,description=Largest accepted frame delta in seconds"` // 单帧 dt 上限（秒）
	Restitution    float64 `yaml:"restitution" json:"restitution,omitempty" jsonschema:"minimum=0,maximum=1"`
	GroundFriction float64 `yaml:"groundFriction" json:"groundFriction,omitempty"`
	SleepSpeed     float64 `yaml:"sleepSpeed" json:"sleepSpeed,omitempty"`
	SleepTime      float64 `yaml:"sleepTime" json:"sleepTime,omitempty"`
	LinearDamping  float64 `yaml:"linearDamping" json:"linearDamping,omitempty" jsonschema:"minimum=0,maximum=1"` // 粒子的基础线性阻尼
}

// ActivationConfig 激活策略配置
type ActivationConfig struct {
	DesiredLiveCount int     `yaml:"desiredLiveCount" json:"desiredLiveCount,omitempty" jsonschema:"minimum=0"`
	InnerRadius      float64 `yaml:"innerRadius" json:"innerRadius,omitempty"`                              // 生成环带内半径
	OuterRadius      float64 `yaml:"outerRadius" json:"outerRadius,omitempty"`                              // 生成环带外半径
	DespawnDistance  float64 `yaml:"despawnDistance" json:"despawnDistance,omitempty"`                      // 超出该水平距离的粒子被回收
	MinLiveSeconds   float64 `yaml:"minLiveSeconds" json:"minLiveSeconds,omitempty" jsonschema:"minimum=0"` // 激活后的最短存活时间
	SpawnHeight      float64 `yaml:"spawnHeight" json:"spawnHeight,omitempty"`                              // 生成点相对地形的高度
	VelocityJitter   float64 `yaml:"velocityJitter" json:"velocityJitter,omitempty"`
}

// MinLiveDuration 返回最短存活时间
func (c ActivationConfig) MinLiveDuration() time.Duration {
	return time.Duration(c.MinLiveSeconds * float64(time.Second))
}

// MergeConfig 合并/分裂配置
type MergeConfig struct {
	Interval         int     `yaml:"interval" json:"interval,omitempty" jsonschema:"minimum=1"`           // 每隔多少 tick 扫描一次
	Factor           float64 `yaml:"factor" json:"factor,omitempty" jsonschema:"minimum=0"`               // 合并距离系数
	AttractFactor    float64 `yaml:"attractFactor" json:"attractFactor,omitempty" jsonschema:"minimum=0"` // 吸引模式下的合并距离系数
	SplitThreshold   float64 `yaml:"splitThreshold" json:"splitThreshold,omitempty"`                      // 合并后半径超过该值则分裂
	PostSplitRadius  float64 `yaml:"postSplitRadius" json:"postSplitRadius,omitempty"`                    // 分裂后主体半径
	SplitChildRadius float64 `yaml:"splitChildRadius" json:"splitChildRadius,omitempty"`                  // 分裂产生的新粒子半径
	SplitJitter      float64 `yaml:"splitJitter" json:"splitJitter,omitempty"`                            // 新粒子速度扰动
}

// AttractionConfig 吸引力模型配置
type AttractionConfig struct {
	Distance           float64 `yaml:"distance" json:"distance,omitempty"`                     // 吸引生效距离
	CollectionDistance float64 `yaml:"collectionDistance" json:"collectionDistance,omitempty"` // 收集距离（必须小于 Distance）
	Strength           float64 `yaml:"strength" json:"strength,omitempty"`
	DampingZoneFactor  float64 `yaml:"dampingZoneFactor" json:"dampingZoneFactor,omitempty"`                            // 收集距离的倍数，在此范围内降低阻尼
	ReducedDamping     float64 `yaml:"reducedDamping" json:"reducedDamping,omitempty" jsonschema:"minimum=0,maximum=1"` // 靠近目标时的临时阻尼
	DampingRestoreTick int     `yaml:"dampingRestoreTick" json:"dampingRestoreTick,omitempty" jsonschema:"minimum=0"`   // 临时阻尼保持的 tick 数
	TargetHeightOffset float64 `yaml:"targetHeightOffset" json:"targetHeightOffset,omitempty"`                          // 目标点相对地形的最低高度
}

// ResourceConfig 资源计数器配置
type ResourceConfig struct {
	Capacity int `yaml:"capacity" json:"capacity,omitempty" jsonschema:"minimum=0"`
	Initial  int `yaml:"initial" json:"initial,omitempty" jsonschema:"minimum=0"`
}

// ProjectileConfig 弹射物配置
type ProjectileConfig struct {
	Capacity     int     `yaml:"capacity" json:"capacity,omitempty" jsonschema:"minimum=1"`
	Cost         int     `yaml:"cost" json:"cost,omitempty" jsonschema:"minimum=0"`
	Speed        float64 `yaml:"speed" json:"speed,omitempty"`
	Lifespan     float64 `yaml:"lifespan" json:"lifespan,omitempty"` // 秒
	GravityScale float64 `yaml:"gravityScale" json:"gravityScale,omitempty"`
}

// LifespanDuration 返回弹射物寿命
func (c ProjectileConfig) LifespanDuration() time.Duration {
	return time.Duration(c.Lifespan * float64(time.Second))
}

// FrameConfig 帧调度配置
type FrameConfig struct {
	CosmeticInterval int `yaml:"cosmeticInterval" json:"cosmeticInterval,omitempty" jsonschema:"minimum=1"` // 外观更新回调间隔（帧）
}

// DefaultSimulationConfig 返回内置默认配置
// 与 data/simulation.yaml 保持一致
func DefaultSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		Pool: PoolConfig{
			Capacity:      DefaultPoolCapacity,
			MaxLiveCount:  DefaultMaxLiveCount,
			DefaultRadius: DefaultParticleRadius,
		},
		World: WorldConfig{
			Gravity:        -9.82,
			GroundY:        0,
			MaxStep:        MaxFrameDelta,
			Restitution:    0.2,
			GroundFriction: 2.0,
			SleepSpeed:     0.1,
			SleepTime:      1.0,
			LinearDamping:  DefaultLinearDamping,
		},
		Activation: ActivationConfig{
			DesiredLiveCount: 80,
			InnerRadius:      5,
			OuterRadius:      25,
			DespawnDistance:  40,
			MinLiveSeconds:   MinLiveSeconds,
			SpawnHeight:      3,
			VelocityJitter:   0.5,
		},
		Merge: MergeConfig{
			Interval:         MergeInterval,
			Factor:           MergeFactor,
			AttractFactor:    AttractMergeFactor,
			SplitThreshold:   SplitThreshold,
			PostSplitRadius:  PostSplitRadius,
			SplitChildRadius: SplitChildRadius,
			SplitJitter:      0.5,
		},
		Attraction: AttractionConfig{
			Distance:           15,
			CollectionDistance: 1.5,
			Strength:           40,
			DampingZoneFactor:  2,
			ReducedDamping:     ReducedLinearDamping,
			DampingRestoreTick: DampingRestoreTicks,
			TargetHeightOffset: 1,
		},
		Resources: ResourceConfig{
			Capacity: 100,
			Initial:  0,
		},
		Projectile: ProjectileConfig{
			Capacity:     16,
			Cost:         10,
			Speed:        30,
			Lifespan:     3,
			GravityScale: 0.5,
		},
		Frame: FrameConfig{
			CosmeticInterval: 3,
		},
	}
}

// LoadSimulationConfig 从文件加载模拟配置
//
// 参数:
//   - path: 配置文件路径（如 "data/simulation.yaml"）
//
// 返回:
//   - *SimulationConfig: 加载并验证后的配置
//   - error: 读取、解析或验证失败时返回错误
func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}
	return ParseSimulationConfig(data)
}

// ParseSimulationConfig 解析 YAML 配置
// 未出现在 YAML 中的字段保留默认值
func ParseSimulationConfig(data []byte) (*SimulationConfig, error) {
	cfg := DefaultSimulationConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse simulation config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	return cfg, nil
}

// LoadDefaultSimulationConfig 加载嵌入的默认配置
// embedded 包未初始化或解析失败时回退到 DefaultSimulationConfig
func LoadDefaultSimulationConfig() *SimulationConfig {
	if !embedded.IsInitialized() {
		return DefaultSimulationConfig()
	}

	data, err := embedded.ReadFile(DefaultConfigPath)
	if err != nil {
		log.Printf("[Config] Warning: failed to read embedded %s: %v (using built-in defaults)", DefaultConfigPath, err)
		return DefaultSimulationConfig()
	}

	cfg, err := ParseSimulationConfig(data)
	if err != nil {
		log.Printf("[Config] Warning: %v (using built-in defaults)", err)
		return DefaultSimulationConfig()
	}
	return cfg
}

// Validate 验证配置有效性
//
// 检查项：
//   - 池容量与活跃上限为正，且上限不超过容量
//   - 半径、距离类参数为正且有限
//   - 生成环带内半径不大于外半径
//   - 收集距离严格小于吸引距离
//   - 分裂后半径不超过分裂阈值
//
// 返回:
//   - error: 验证失败时返回错误，成功返回 nil
func (c *SimulationConfig) Validate() error {
	if c.Pool.Capacity <= 0 {
		return fmt.Errorf("pool capacity must be positive, got %d", c.Pool.Capacity)
	}
	if c.Pool.MaxLiveCount <= 0 || c.Pool.MaxLiveCount > c.Pool.Capacity {
		return fmt.Errorf("maxLiveCount must be in (0, %d], got %d", c.Pool.Capacity, c.Pool.MaxLiveCount)
	}

	positives := []struct {
		name  string
		value float64
	}{
		{"pool.defaultRadius", c.Pool.DefaultRadius},
		{"world.maxStep", c.World.MaxStep},
		{"activation.outerRadius", c.Activation.OuterRadius},
		{"activation.despawnDistance", c.Activation.DespawnDistance},
		{"merge.factor", c.Merge.Factor},
		{"merge.attractFactor", c.Merge.AttractFactor},
		{"merge.splitThreshold", c.Merge.SplitThreshold},
		{"merge.postSplitRadius", c.Merge.PostSplitRadius},
		{"merge.splitChildRadius", c.Merge.SplitChildRadius},
		{"attraction.distance", c.Attraction.Distance},
		{"attraction.collectionDistance", c.Attraction.CollectionDistance},
		{"projectile.speed", c.Projectile.Speed},
		{"projectile.lifespan", c.Projectile.Lifespan},
	}
	for _, p := range positives {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%s must be positive and finite, got %v", p.name, p.value)
		}
	}

	if c.Activation.InnerRadius < 0 || c.Activation.InnerRadius > c.Activation.OuterRadius {
		return fmt.Errorf("spawn annulus invalid: inner(%.1f) outer(%.1f)",
			c.Activation.InnerRadius, c.Activation.OuterRadius)
	}
	if c.Activation.MinLiveSeconds < 0 {
		return fmt.Errorf("activation.minLiveSeconds must be >= 0, got %.2f", c.Activation.MinLiveSeconds)
	}
	if c.Merge.Interval <= 0 {
		return fmt.Errorf("merge.interval must be positive, got %d", c.Merge.Interval)
	}
	if c.Merge.PostSplitRadius > c.Merge.SplitThreshold {
		return fmt.Errorf("merge.postSplitRadius(%.2f) must not exceed splitThreshold(%.2f)",
			c.Merge.PostSplitRadius, c.Merge.SplitThreshold)
	}
	if c.Attraction.CollectionDistance >= c.Attraction.Distance {
		return fmt.Errorf("attraction.collectionDistance(%.2f) must be smaller than distance(%.2f)",
			c.Attraction.CollectionDistance, c.Attraction.Distance)
	}
	if c.World.LinearDamping < 0 || c.World.LinearDamping >= 1 ||
		c.Attraction.ReducedDamping < 0 || c.Attraction.ReducedDamping >= 1 {
		return fmt.Errorf("damping values must be in [0, 1)")
	}
	if c.Resources.Capacity < 0 {
		return fmt.Errorf("resources.capacity must be >= 0, got %d", c.Resources.Capacity)
	}
	if c.Projectile.Capacity < 0 || c.Projectile.Cost < 0 {
		return fmt.Errorf("projectile capacity and cost must be >= 0")
	}
	if c.Frame.CosmeticInterval <= 0 {
		return fmt.Errorf("frame.cosmeticInterval must be positive, got %d", c.Frame.CosmeticInterval)
	}

	return nil
}

// UnitMass 返回一个资源单位对应的质量（默认半径粒子的质量）
func (c *SimulationConfig) UnitMass() float64 {
	r := c.Pool.DefaultRadius
	return r * r * r
}
