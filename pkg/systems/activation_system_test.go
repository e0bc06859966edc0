package systems

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/physics"
	"github.com/decker502/tidewater/pkg/vmath"
)

// newTestParticles 创建测试用的粒子池（平坦地面 y=0）
func newTestParticles(t *testing.T, cfg *config.SimulationConfig) *entities.ParticlePool {
	t.Helper()
	worldCfg := physics.DefaultWorldConfig()
	worldCfg.GroundY = cfg.World.GroundY
	pp, err := entities.NewParticlePool(physics.NewWorld(worldCfg, cfg.Pool.Capacity), cfg)
	if err != nil {
		t.Fatalf("failed to create particle pool: %v", err)
	}
	return pp
}

func newTestActivation(t *testing.T, cfg *config.SimulationConfig, terrain game.HeightField) (*ActivationSystem, *entities.ParticlePool) {
	t.Helper()
	pp := newTestParticles(t, cfg)
	return NewActivationSystem(pp, terrain, rand.New(rand.NewSource(1)), cfg), pp
}

func TestActivateNearFillsAnnulus(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 50
	cfg.Pool.MaxLiveCount = 50
	terrain := game.FlatTerrain{Y: 2}
	as, pp := newTestActivation(t, cfg, terrain)

	center := vmath.V3(10, 0, -5)
	n := as.ActivateNear(center, 30, time.Unix(100, 0))
	if n != 30 {
		t.Fatalf("expected 30 activations, got %d", n)
	}
	if pp.ActiveCount() != 30 {
		t.Errorf("expected 30 active, got %d", pp.ActiveCount())
	}

	inner := cfg.Activation.InnerRadius
	outer := cfg.Activation.OuterRadius
	wantY := terrain.Y + cfg.Activation.SpawnHeight + cfg.Pool.DefaultRadius
	for _, id := range pp.ActiveIDs(nil) {
		p := pp.Get(id)
		d := math.Sqrt(p.Body.Position.PlanarDistSq(center))
		if d < inner-1e-9 || d > outer+1e-9 {
			t.Errorf("particle %d at planar distance %.3f, expected within [%.1f, %.1f]", id, d, inner, outer)
		}
		if math.Abs(p.Body.Position.Y-wantY) > 1e-9 {
			t.Errorf("particle %d at y=%.3f, expected %.3f", id, p.Body.Position.Y, wantY)
		}
		if !p.Body.InWorld() {
			t.Errorf("particle %d should be in physics world", id)
		}
	}

	// 已达到期望数量，不再激活
	if n := as.ActivateNear(center, 30, time.Unix(100, 0)); n != 0 {
		t.Errorf("expected no further activation, got %d", n)
	}
}

func TestActivateNearRespectsCeiling(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 20
	cfg.Pool.MaxLiveCount = 8
	as, pp := newTestActivation(t, cfg, nil)

	n := as.ActivateNear(vmath.Vec3{}, 15, time.Unix(0, 0))
	if n != 8 {
		t.Errorf("expected activation clamped to 8, got %d", n)
	}
	if pp.ActiveCount() != 8 {
		t.Errorf("expected 8 active, got %d", pp.ActiveCount())
	}
}

// TestDeactivateFarGracePeriod 刚激活的粒子即使在远处也不会被回收
func TestDeactivateFarGracePeriod(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 4
	cfg.Pool.MaxLiveCount = 4
	as, pp := newTestActivation(t, cfg, nil)

	start := time.Unix(1000, 0)
	farID, _ := pp.Spawn(vmath.V3(100, 1, 0), vmath.Vec3{}, 0.5, start)
	nearID, _ := pp.Spawn(vmath.V3(1, 1, 0), vmath.Vec3{}, 0.5, start)

	tests := []struct {
		name            string
		elapsed         time.Duration
		wantFreed       int
		wantFarReleased bool
	}{
		{"within grace", time.Second, 0, false},
		{"at grace boundary", cfg.Activation.MinLiveDuration(), 0, false},
		{"after grace", cfg.Activation.MinLiveDuration() + time.Millisecond, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freed := as.DeactivateFar(vmath.Vec3{}, cfg.Activation.DespawnDistance, start.Add(tt.elapsed))
			if freed != tt.wantFreed {
				t.Errorf("expected %d released, got %d", tt.wantFreed, freed)
			}
			if pp.IsActive(farID) == tt.wantFarReleased {
				t.Errorf("far particle active=%v after %v", pp.IsActive(farID), tt.elapsed)
			}
			if !pp.IsActive(nearID) {
				t.Error("near particle should stay active")
			}
		})
	}
}

// TestDeactivateFarIgnoresHeight 回收只看水平距离
func TestDeactivateFarIgnoresHeight(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 2
	cfg.Pool.MaxLiveCount = 2
	as, pp := newTestActivation(t, cfg, nil)

	start := time.Unix(0, 0)
	id, _ := pp.Spawn(vmath.V3(0, 500, 0), vmath.Vec3{}, 0.5, start)

	later := start.Add(time.Minute)
	if freed := as.DeactivateFar(vmath.Vec3{}, cfg.Activation.DespawnDistance, later); freed != 0 {
		t.Errorf("expected no release for particle directly above center, got %d", freed)
	}
	if !pp.IsActive(id) {
		t.Error("particle should remain active")
	}
}

// TestUpdateReusesFreedSlots 同一帧内先回收再激活
func TestUpdateReusesFreedSlots(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 3
	cfg.Pool.MaxLiveCount = 3
	cfg.Activation.DesiredLiveCount = 3
	as, pp := newTestActivation(t, cfg, nil)

	start := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		pp.Spawn(vmath.V3(500, 1, float64(i)), vmath.Vec3{}, 0.5, start)
	}

	released, activated := as.Update(vmath.Vec3{}, start.Add(time.Minute))
	if released != 3 || activated != 3 {
		t.Errorf("expected (3, 3), got (%d, %d)", released, activated)
	}
	if pp.ActiveCount() != 3 {
		t.Errorf("expected 3 active, got %d", pp.ActiveCount())
	}
	for _, id := range pp.ActiveIDs(nil) {
		if d := math.Sqrt(pp.Get(id).Body.Position.PlanarDistSq(vmath.Vec3{})); d > cfg.Activation.OuterRadius+1e-9 {
			t.Errorf("reactivated particle %d should be near the center, got distance %.2f", id, d)
		}
	}
}

func TestActivationDeterministicWithSeed(t *testing.T) {
	cfg := config.DefaultSimulationConfig()
	cfg.Pool.Capacity = 10
	cfg.Pool.MaxLiveCount = 10

	run := func() []vmath.Vec3 {
		as, pp := newTestActivation(t, cfg, nil)
		as.ActivateNear(vmath.Vec3{}, 10, time.Unix(0, 0))
		var out []vmath.Vec3
		for i := 0; i < pp.Capacity(); i++ {
			out = append(out, pp.Get(ecs.EntityID(i)).Body.Position)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
