package systems

import (
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/vmath"
)

// MergeStats 一次合并扫描的结果
type MergeStats struct {
	Ran           bool // 本 tick 是否执行了扫描
	Merges        int
	Splits        int
	SkippedSplits int // 因没有空闲槽位而跳过的分裂
}

// MergeSystem 处理粒子之间的合并与分裂
//
// 扫描以降低的频率运行（默认隔一个 tick），对活跃粒子做 O(n²) 两两检测。
// n 受池容量约束，规模很小，因此不使用空间索引。
//
// 合并规则：
//   - 距离阈值: dist² < (r_i + r_j)² × factor（吸引模式下使用更大的 factor）
//   - 体积守恒: r' = (r_i³ + r_j³)^(1/3)
//   - 位置与速度按质量加权平均（动量守恒）
//   - 体积大的一方吸收另一方，相等时保留 ID 较小者；被吸收者回收到池中
//   - 同一次扫描中，参与过合并的粒子不再参与其他合并
//
// 合并后半径超过 SplitThreshold 时，主体半径被限制为 PostSplitRadius，
// 并在其附近激活一个半径为 SplitChildRadius 的新粒子（无空闲槽位时静默跳过）。
type MergeSystem struct {
	particles *entities.ParticlePool
	rng       *rand.Rand
	cfg       config.MergeConfig

	tick    int
	ids     []ecs.EntityID
	claimed []bool // 按 EntityID 索引，标记本次扫描中已参与合并的粒子
}

// NewMergeSystem 创建合并/分裂系统
func NewMergeSystem(particles *entities.ParticlePool, rng *rand.Rand, cfg *config.SimulationConfig) *MergeSystem {
	return &MergeSystem{
		particles: particles,
		rng:       rng,
		cfg:       cfg.Merge,
		ids:       make([]ecs.EntityID, 0, particles.Capacity()),
		claimed:   make([]bool, particles.Capacity()),
	}
}

// Update 推进一个 tick，每 Interval 个 tick 执行一次扫描
//
// 参数:
//   - attracting: 当前是否处于吸引模式（放宽合并距离）
//   - now: 当前时间（分裂出的新粒子以此作为激活时间）
func (s *MergeSystem) Update(attracting bool, now time.Time) MergeStats {
	s.tick++
	if s.tick%s.cfg.Interval != 0 {
		return MergeStats{}
	}
	return s.ProcessMerges(attracting, now)
}

// ProcessMerges 立即执行一次完整的两两扫描
func (s *MergeSystem) ProcessMerges(attracting bool, now time.Time) MergeStats {
	stats := MergeStats{Ran: true}

	factor := s.cfg.Factor
	if attracting {
		factor = s.cfg.AttractFactor
	}

	s.ids = s.particles.ActiveIDs(s.ids[:0])
	for i := range s.claimed {
		s.claimed[i] = false
	}

	for a := 0; a < len(s.ids); a++ {
		idA := s.ids[a]
		if s.claimed[idA] || !s.particles.IsActive(idA) {
			continue
		}
		pa := s.particles.Get(idA)

		for b := a + 1; b < len(s.ids); b++ {
			idB := s.ids[b]
			if s.claimed[idB] || !s.particles.IsActive(idB) {
				continue
			}
			pb := s.particles.Get(idB)

			if !s.inMergeRange(pa, pb, factor) {
				continue
			}
			if !s.merge(pa, pb, now, &stats) {
				continue
			}
			// pa 要么被吸收，要么已标记为本轮已合并，均不再参与
			break
		}
	}

	return stats
}

// inMergeRange 距离阈值检测：dist² < (r_i + r_j)² × factor
func (s *MergeSystem) inMergeRange(pa, pb *components.ParticleComponent, factor float64) bool {
	posA, posB := pa.Body.Position, pb.Body.Position
	if !posA.IsFinite() || !posB.IsFinite() {
		return false
	}
	sumR := pa.Body.Radius + pb.Body.Radius
	return posA.DistSq(posB) < sumR*sumR*factor
}

// merge 把两个粒子合并为一个
// pa 的 ID 总是小于 pb，体积相等时 pa 保留。返回 false 表示几何退化、跳过合并。
func (s *MergeSystem) merge(pa, pb *components.ParticleComponent, now time.Time, stats *MergeStats) bool {
	massA, massB := pa.Body.Mass, pb.Body.Mass

	pos, ok := vmath.WeightedAverage(pa.Body.Position, massA, pb.Body.Position, massB)
	if !ok {
		return false
	}
	vel, ok := vmath.WeightedAverage(pa.Body.Velocity, massA, pb.Body.Velocity, massB)
	if !ok {
		return false
	}
	newRadius := math.Cbrt(pa.Volume() + pb.Volume())
	if !(newRadius > 0) || math.IsInf(newRadius, 0) {
		return false
	}

	survivor, absorbed := pa, pb
	if pb.Volume() > pa.Volume() {
		survivor, absorbed = pb, pa
	}

	s.claimed[pa.ID] = true
	s.claimed[pb.ID] = true
	s.particles.Release(absorbed.ID)

	survivor.Body.Position = pos
	survivor.Body.Velocity = vel
	survivor.Body.SetRadius(newRadius)
	s.particles.World().Wake(&survivor.Body)
	stats.Merges++

	if newRadius > s.cfg.SplitThreshold {
		s.split(survivor, now, stats)
	}

	return true
}

// split 模拟水滴破碎：在旁边生成一个新粒子，成功后主体缩小
// 新粒子无法生成时主体保持原半径，体积不会丢失
func (s *MergeSystem) split(survivor *components.ParticleComponent, now time.Time, stats *MergeStats) {
	dir := s.randomUnit()
	offset := dir.Scale(s.cfg.PostSplitRadius + s.cfg.SplitChildRadius)
	childPos := survivor.Body.Position.Add(offset)
	if floor := s.particles.World().Config().GroundY + s.cfg.SplitChildRadius; childPos.Y < floor {
		childPos.Y = floor
	}
	childVel := survivor.Body.Velocity.Add(vmath.V3(
		s.jitter(s.cfg.SplitJitter),
		s.jitter(s.cfg.SplitJitter),
		s.jitter(s.cfg.SplitJitter),
	))

	childID, ok := s.particles.Spawn(childPos, childVel, s.cfg.SplitChildRadius, now)
	if !ok {
		stats.SkippedSplits++
		log.Printf("[MergeSystem] split skipped for particle %d: no free slot (active=%d)",
			survivor.ID, s.particles.ActiveCount())
		return
	}
	survivor.Body.SetRadius(s.cfg.PostSplitRadius)
	s.claimed[childID] = true
	stats.Splits++
}

// randomUnit 返回随机单位向量（拒绝采样）
func (s *MergeSystem) randomUnit() vmath.Vec3 {
	for i := 0; i < 8; i++ {
		v := vmath.V3(s.jitter(1), s.jitter(1), s.jitter(1))
		if l := v.LenSq(); l > 1e-6 && l <= 1 {
			dir, _ := v.Normalize()
			return dir
		}
	}
	return vmath.V3(1, 0, 0)
}

func (s *MergeSystem) jitter(amount float64) float64 {
	return (s.rng.Float64()*2 - 1) * amount
}
