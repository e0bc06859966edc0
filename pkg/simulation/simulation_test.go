package simulation

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/systems"
	"github.com/decker502/tidewater/pkg/vmath"
)

const frameDelta = 1.0 / 60.0

// newTestSimulation 创建使用手动时钟和固定种子的模拟
func newTestSimulation(t *testing.T, cfg *config.SimulationConfig, opts ...Option) (*Simulation, *game.ManualClock) {
	t.Helper()
	clock := game.NewManualClock(time.Unix(1_000_000, 0))
	opts = append([]Option{WithClock(clock), WithRand(rand.New(rand.NewSource(42)))}, opts...)
	s, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, clock
}

// quietConfig 不自动激活粒子，便于单独验证某个行为
func quietConfig() *config.SimulationConfig {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 10
	cfg.Pool.MaxLiveCount = 10
	cfg.Activation.DesiredLiveCount = 0
	return cfg
}

func step(s *Simulation, clock *game.ManualClock) FrameStats {
	clock.Advance(time.Second / 60)
	return s.Update(frameDelta)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.MaxLiveCount = cfg.Pool.Capacity + 1
	if _, err := New(cfg); err == nil {
		t.Error("expected error for maxLiveCount > capacity")
	}

	s, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) should use defaults, got %v", err)
	}
	if s.PoolCapacity() != config.DefaultPoolCapacity {
		t.Errorf("expected capacity %d, got %d", config.DefaultPoolCapacity, s.PoolCapacity())
	}
	if s.ActiveCount() != 0 {
		t.Errorf("new simulation should have no active particles, got %d", s.ActiveCount())
	}
}

func TestUpdateActivatesAroundAgent(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	agent := &game.StaticAgent{Position: vmath.V3(50, 0, -30)}
	s, clock := newTestSimulation(t, cfg, WithAgent(agent))

	stats := step(s, clock)
	if stats.Activated != cfg.Activation.DesiredLiveCount {
		t.Fatalf("expected %d activations, got %d", cfg.Activation.DesiredLiveCount, stats.Activated)
	}
	for _, p := range s.Snapshot(nil) {
		d := math.Sqrt(p.Position.PlanarDistSq(agent.Position))
		if d > cfg.Activation.OuterRadius+1e-6 {
			t.Errorf("particle %d spawned %.2f from agent, expected <= %.1f", p.ID, d, cfg.Activation.OuterRadius)
		}
	}

	center := vmath.V3(-200, 0, 0)
	s.SetActivationCenter(&center)
	if s.ActivationCenter() != center {
		t.Errorf("expected explicit center %+v, got %+v", center, s.ActivationCenter())
	}
	s.SetActivationCenter(nil)
	if s.ActivationCenter() != agent.Position {
		t.Errorf("expected agent position after clearing center, got %+v", s.ActivationCenter())
	}
}

// TestPoolInvariants 任意帧序列后：活跃 + 非活跃 = 容量，且活跃数不超过上限
func TestPoolInvariants(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 60
	cfg.Pool.MaxLiveCount = 40
	cfg.Activation.DesiredLiveCount = 40
	cfg.Activation.MinLiveSeconds = 0.5
	agent := &game.StaticAgent{}
	s, clock := newTestSimulation(t, cfg, WithAgent(agent))

	for i := 0; i < 600; i++ {
		agent.Position.X += 0.5
		if i%50 == 0 {
			target := agent.Position
			s.SetAttractionTarget(&target)
		}
		if i%50 == 25 {
			s.SetAttractionTarget(nil)
		}
		step(s, clock)

		active := s.particles.ActiveCount()
		if active+s.particles.InactiveCount() != s.PoolCapacity() {
			t.Fatalf("frame %d: active(%d) + inactive(%d) != capacity(%d)",
				i, active, s.particles.InactiveCount(), s.PoolCapacity())
		}
		if active > cfg.Pool.MaxLiveCount {
			t.Fatalf("frame %d: active %d exceeds ceiling %d", i, active, cfg.Pool.MaxLiveCount)
		}
	}

	for _, p := range s.Snapshot(nil) {
		if !p.Position.IsFinite() || !p.Velocity.IsFinite() || !(p.Radius > 0) {
			t.Errorf("particle %d has invalid state %+v", p.ID, p)
		}
	}
}

// TestInvalidDeltaSkipsPhysicsOnly 无效 delta 只跳过物理步进
func TestInvalidDeltaSkipsPhysicsOnly(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
	}{
		{"too large", 0.5},
		{"zero", 0},
		{"negative", -0.016},
		{"nan", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quietConfig()
			s, _ := newTestSimulation(t, cfg)
			id, ok := s.CreateParticle(vmath.V3(0, 10, 0), vmath.V3(1, 0, 0))
			if !ok {
				t.Fatal("CreateParticle failed")
			}

			stats := s.Update(tt.delta)
			if !stats.PhysicsSkipped {
				t.Error("expected PhysicsSkipped")
			}
			if stats.Tick != 1 || s.Tick() != 1 {
				t.Errorf("tick should still advance, got %d", s.Tick())
			}
			if got := s.particles.Get(id).Body.Position; got != vmath.V3(0, 10, 0) {
				t.Errorf("particle moved during skipped frame: %+v", got)
			}
		})
	}
}

// TestCollectionClamped 95/100 收集 10 → 100
func TestCollectionClamped(t *testing.T) {
	s, clock := newTestSimulation(t, quietConfig())
	s.SetResourceAmount(95)

	target := vmath.V3(0, 5, 0)
	radius := math.Cbrt(10 * s.Config().UnitMass())
	if _, ok := s.particles.Spawn(target, vmath.Vec3{}, radius, clock.Now()); !ok {
		t.Fatal("spawn failed")
	}
	s.SetAttractionTarget(&target)

	stats := step(s, clock)
	if stats.Attraction.Collected != 1 || stats.Attraction.CollectedValue != 10 {
		t.Errorf("expected one collection worth 10, got %+v", stats.Attraction)
	}
	if s.ResourceAmount() != 100 {
		t.Errorf("expected 100, got %d", s.ResourceAmount())
	}
}

func TestConsumeGuard(t *testing.T) {
	s, _ := newTestSimulation(t, quietConfig())
	s.SetResourceAmount(5)

	if s.Consume(10) {
		t.Error("Consume(10) should fail with 5 available")
	}
	if s.ResourceAmount() != 5 {
		t.Errorf("expected 5, got %d", s.ResourceAmount())
	}
	if !s.Consume(5) || s.ResourceAmount() != 0 {
		t.Errorf("Consume(5) should succeed, amount=%d", s.ResourceAmount())
	}
}

func TestFireThroughFacade(t *testing.T) {
	s, clock := newTestSimulation(t, quietConfig())
	s.SetResourceAmount(5)

	if _, err := s.Fire(vmath.V3(0, 2, 0), vmath.V3(0, 0, 1)); !errors.Is(err, systems.ErrInsufficientResource) {
		t.Fatalf("expected ErrInsufficientResource, got %v", err)
	}
	if s.ResourceAmount() != 5 || s.ProjectileCount() != 0 {
		t.Errorf("failed fire must not mutate: amount=%d projectiles=%d", s.ResourceAmount(), s.ProjectileCount())
	}

	s.SetResourceAmount(10)
	if _, err := s.Fire(vmath.V3(0, 2, 0), vmath.V3(0, -1, 1)); err != nil {
		t.Fatalf("fire failed: %v", err)
	}
	if s.ResourceAmount() != 0 || s.ProjectileCount() != 1 {
		t.Errorf("expected amount 0 and one projectile, got %d/%d", s.ResourceAmount(), s.ProjectileCount())
	}

	// 弹射物落地后，资源以水团形式回到世界
	for i := 0; i < 300 && s.ProjectileCount() > 0; i++ {
		step(s, clock)
	}
	if s.ProjectileCount() != 0 {
		t.Fatal("projectile should have expired")
	}
	total := 0
	for _, id := range s.particles.ActiveIDs(nil) {
		total += s.particles.Get(id).Value(s.Config().UnitMass())
	}
	if total+s.ResourceAmount() != 10 {
		t.Errorf("expected value 10 to return to the world, got blobs=%d counter=%d", total, s.ResourceAmount())
	}
}

func TestCosmeticHookCadence(t *testing.T) {
	cfg := quietConfig()
	var calls []int
	var lastLen int
	s, clock := newTestSimulation(t, cfg, WithCosmeticHook(func(tick int, particles []ParticleState) {
		calls = append(calls, tick)
		lastLen = len(particles)
	}))
	s.CreateParticle(vmath.V3(0, 5, 0), vmath.Vec3{})
	s.CreateParticle(vmath.V3(10, 5, 0), vmath.Vec3{})

	for i := 0; i < 9; i++ {
		step(s, clock)
	}

	want := []int{3, 6, 9}
	if len(calls) != len(want) {
		t.Fatalf("expected hook at ticks %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("expected hook at ticks %v, got %v", want, calls)
			break
		}
	}
	if lastLen != 2 {
		t.Errorf("expected snapshot of 2 particles, got %d", lastLen)
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestSimulation(t, quietConfig())
	s.SetResourceAmount(50)
	for i := 0; i < 4; i++ {
		s.CreateParticle(vmath.V3(float64(i)*3, 5, 0), vmath.Vec3{})
	}
	s.Fire(vmath.V3(0, 2, 0), vmath.V3(1, 0, 0))

	if n := s.Clear(); n != 4 {
		t.Errorf("expected 4 released, got %d", n)
	}
	if s.ActiveCount() != 0 || s.ProjectileCount() != 0 {
		t.Errorf("expected empty simulation, got %d particles %d projectiles", s.ActiveCount(), s.ProjectileCount())
	}
	if s.particles.World().BodyCount() != 0 {
		t.Errorf("physics world should be empty, got %d bodies", s.particles.World().BodyCount())
	}
	if n := s.Clear(); n != 0 {
		t.Errorf("second Clear should release nothing, got %d", n)
	}
}

func TestSaveRestore(t *testing.T) {
	s, _ := newTestSimulation(t, quietConfig())
	store := game.NewStateStore(nil, "test")

	if err := s.Restore(store); !errors.Is(err, game.ErrNoSavedState) {
		t.Fatalf("expected ErrNoSavedState, got %v", err)
	}

	// 先制造一次回收，让空闲栈的顺序与槽位顺序不同
	tmp, _ := s.CreateParticle(vmath.V3(0, 3, 0), vmath.Vec3{})
	s.particles.Release(tmp)

	positions := []vmath.Vec3{vmath.V3(1, 5, 1), vmath.V3(-3, 2, 7), vmath.V3(9, 1, -4)}
	want := make(map[ecs.EntityID]vmath.Vec3)
	for _, p := range positions {
		id, ok := s.CreateParticle(p, vmath.V3(0, 1, 0))
		if !ok {
			t.Fatalf("CreateParticle(%+v) failed", p)
		}
		want[id] = p
	}
	s.SetResourceAmount(12)
	if err := s.Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	s.Clear()
	s.SetResourceAmount(0)
	s.CreateParticle(vmath.V3(20, 5, 20), vmath.Vec3{})

	if err := s.Restore(store); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if s.ResourceAmount() != 12 {
		t.Errorf("expected resources 12, got %d", s.ResourceAmount())
	}
	snap := s.Snapshot(nil)
	if len(snap) != len(positions) {
		t.Fatalf("expected %d particles, got %d", len(positions), len(snap))
	}
	for _, p := range snap {
		pos, ok := want[p.ID]
		if !ok {
			t.Errorf("particle restored into unexpected slot %d", p.ID)
			continue
		}
		if p.Position != pos {
			t.Errorf("particle %d: expected %+v, got %+v", p.ID, pos, p.Position)
		}
	}
}

// TestRestoreDisplacedSlot 存档槽位超出当前池容量时回退到任意空闲槽位
func TestRestoreDisplacedSlot(t *testing.T) {
	store := game.NewStateStore(nil, "")
	state := &game.SavedState{
		Particles: []game.SavedParticle{
			{ID: 2, Position: vmath.V3(1, 2, 0), Radius: 0.5},
			{ID: 40, Position: vmath.V3(5, 2, 0), Radius: 0.5},
		},
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	s, _ := newTestSimulation(t, quietConfig())
	if err := s.Restore(store); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	snap := s.Snapshot(nil)
	if len(snap) != 2 {
		t.Fatalf("expected 2 particles, got %d", len(snap))
	}
	found := false
	for _, p := range snap {
		if p.ID == 2 {
			found = p.Position == vmath.V3(1, 2, 0)
		}
	}
	if !found {
		t.Errorf("expected particle at slot 2 to keep its position, got %+v", snap)
	}
}

// worldValue 计数器加上飞行中弹射物携带的资源
func worldValue(s *Simulation) int {
	total := s.ResourceAmount()
	s.ForEachProjectile(func(p *components.ProjectileComponent) bool {
		total += p.Cost
		return true
	})
	return total
}

// TestSaveRestoreKeepsProjectileValue 飞行中弹射物随存档保存，资源总量不变
func TestSaveRestoreKeepsProjectileValue(t *testing.T) {
	s, clock := newTestSimulation(t, quietConfig())
	store := game.NewStateStore(nil, "")

	s.SetResourceAmount(50)
	if _, err := s.Fire(vmath.V3(0, 50, 0), vmath.V3(1, 0, 0)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}
	clock.Advance(time.Second)
	if err := s.Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := s.Restore(store); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	if s.ProjectileCount() != 1 {
		t.Fatalf("expected 1 projectile after restore, got %d", s.ProjectileCount())
	}
	if got := worldValue(s); got != 50 {
		t.Errorf("expected world value 50, got %d (counter %d)", got, s.ResourceAmount())
	}
	s.ForEachProjectile(func(p *components.ProjectileComponent) bool {
		if age := p.Age(clock.Now()); age != time.Second {
			t.Errorf("expected projectile age 1s, got %v", age)
		}
		return true
	})
}

// TestRestoreRefundsUnbuildableProjectile 弹射物池不足时退还其携带的资源
func TestRestoreRefundsUnbuildableProjectile(t *testing.T) {
	store := game.NewStateStore(nil, "")
	state := &game.SavedState{
		Resources: 5,
		Projectiles: []game.SavedProjectile{
			{ID: 0, Position: vmath.V3(0, 10, 0), Velocity: vmath.V3(1, 0, 0), Direction: vmath.V3(1, 0, 0), Cost: 10},
			{ID: 1, Position: vmath.V3(0, 10, 0), Velocity: vmath.V3(1, 0, 0), Direction: vmath.V3(1, 0, 0), Cost: 10},
		},
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	cfg := quietConfig()
	cfg.Projectile.Capacity = 1
	s, _ := newTestSimulation(t, cfg)
	if err := s.Restore(store); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if s.ProjectileCount() != 1 {
		t.Errorf("expected 1 projectile, got %d", s.ProjectileCount())
	}
	if s.ResourceAmount() != 15 {
		t.Errorf("expected refund into counter (15), got %d", s.ResourceAmount())
	}
}

// TestClearRefundsProjectiles Clear 回收弹射物时退还其携带的资源
func TestClearRefundsProjectiles(t *testing.T) {
	s, _ := newTestSimulation(t, quietConfig())
	s.SetResourceAmount(50)
	if _, err := s.Fire(vmath.V3(0, 50, 0), vmath.V3(1, 0, 0)); err != nil {
		t.Fatalf("Fire() error: %v", err)
	}
	if s.ResourceAmount() != 40 {
		t.Fatalf("expected 40 after firing, got %d", s.ResourceAmount())
	}

	s.Clear()
	if s.ProjectileCount() != 0 {
		t.Errorf("expected no projectiles after Clear, got %d", s.ProjectileCount())
	}
	if s.ResourceAmount() != 50 {
		t.Errorf("expected counter back to 50, got %d", s.ResourceAmount())
	}
}

// TestRestoreRespectsCeiling 存档粒子超过活跃上限时跳过多余部分
func TestRestoreRespectsCeiling(t *testing.T) {
	store := game.NewStateStore(nil, "")
	state := &game.SavedState{Resources: 3}
	for i := 0; i < 8; i++ {
		state.Particles = append(state.Particles, game.SavedParticle{
			Position: vmath.V3(float64(i)*5, 2, 0),
			Radius:   0.5,
		})
	}
	state.Particles = append(state.Particles, game.SavedParticle{Position: vmath.V3(math.NaN(), 0, 0), Radius: 0.5})
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	cfg := quietConfig()
	cfg.Pool.MaxLiveCount = 5
	s, _ := newTestSimulation(t, cfg)
	if err := s.Restore(store); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if s.ActiveCount() != 5 {
		t.Errorf("expected restore clamped to 5, got %d", s.ActiveCount())
	}
}

// TestDeterministicWithSeed 相同种子和输入得到相同结果
func TestDeterministicWithSeed(t *testing.T) {
	run := func() []ParticleState {
		s, clock := newTestSimulation(t, config.DefaultSimulationConfig())
		for i := 0; i < 120; i++ {
			step(s, clock)
		}
		return s.Snapshot(nil)
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("different particle counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("particle %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestCreateParticleFailsWhenFull(t *testing.T) {
	cfg := quietConfig()
	cfg.Pool.MaxLiveCount = 2
	s, _ := newTestSimulation(t, cfg)

	for i := 0; i < 2; i++ {
		if _, ok := s.CreateParticle(vmath.V3(float64(i), 1, 0), vmath.Vec3{}); !ok {
			t.Fatalf("create %d should succeed", i)
		}
	}
	id, ok := s.CreateParticle(vmath.V3(5, 1, 0), vmath.Vec3{})
	if ok || id != ecs.InvalidEntity {
		t.Errorf("expected failure at ceiling, got (%d, %v)", id, ok)
	}
}
