package simulation

import (
	"math/rand"

	"github.com/decker502/tidewater/pkg/game"
)

// CosmeticHook 外观更新回调，每 Frame.CosmeticInterval 帧调用一次
//
// particles 是本帧活跃粒子的只读快照，回调返回后会被下一次快照覆盖，
// 需要保留时由回调方自行复制。
type CosmeticHook func(tick int, particles []ParticleState)

// Option 配置 Simulation 的可选依赖
type Option func(*Simulation)

// WithTerrain 注入地形高度查询（默认为 GroundY 高度的平坦地形）
func WithTerrain(terrain game.HeightField) Option {
	return func(s *Simulation) {
		if terrain != nil {
			s.terrain = terrain
		}
	}
}

// WithAgent 注入代理位置查询，作为默认激活中心
func WithAgent(agent game.AgentLocator) Option {
	return func(s *Simulation) {
		if agent != nil {
			s.agent = agent
		}
	}
}

// WithClock 注入时钟（默认 SystemClock）
func WithClock(clock game.Clock) Option {
	return func(s *Simulation) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRand 注入随机源，相同种子得到可复现的激活与分裂
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithResources 注入外部持有的资源计数器（例如与 UI 共享）
func WithResources(counter *game.ResourceCounter) Option {
	return func(s *Simulation) {
		if counter != nil {
			s.resources = counter
		}
	}
}

// WithCosmeticHook 注册外观更新回调
func WithCosmeticHook(hook CosmeticHook) Option {
	return func(s *Simulation) {
		s.cosmetic = hook
	}
}
