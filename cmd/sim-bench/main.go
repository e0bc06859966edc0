// Package main 无头运行流体粒子模拟，用于压测和回归检查
//
// Usage:
//
//	go run ./cmd/sim-bench [flags]
//
// Flags:
//
//	-frames <n>        运行帧数（默认 3600，即 60 秒）
//	-config <path>     配置文件路径（默认 data/simulation.yaml，不存在时使用内置默认值）
//	-seed <n>          随机种子
//	-wave <amp>        使用起伏地形（振幅，0 为平地）
//	-walk <speed>      代理沿 X 轴移动的速度（世界单位/秒）
//	-attract <n>       每 n 帧切换一次吸引模式（0 关闭）
//	-fire <n>          每 n 帧尝试发射一次（0 关闭）
//	-save <slot>       结束时保存到存档槽位
//	-restore <slot>    开始前从存档槽位恢复
//	-verbose           输出模拟日志
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/simulation"
	"github.com/decker502/tidewater/pkg/vmath"
	"github.com/quasilyte/gdata/v2"
)

var (
	framesFlag  = flag.Int("frames", 3600, "Number of frames to simulate")
	configFlag  = flag.String("config", config.DefaultConfigPath, "Simulation config path")
	seedFlag    = flag.Int64("seed", 1, "Random seed")
	waveFlag    = flag.Float64("wave", 0, "Wave terrain amplitude (0 = flat)")
	walkFlag    = flag.Float64("walk", 2, "Agent walk speed along +X (units/s)")
	attractFlag = flag.Int("attract", 240, "Toggle attraction every N frames (0 = off)")
	fireFlag    = flag.Int("fire", 90, "Try to fire every N frames (0 = off)")
	saveFlag    = flag.String("save", "", "Save final state to slot")
	restoreFlag = flag.String("restore", "", "Restore state from slot before running")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

const frameDelta = 1.0 / 60.0

// totals 累计的帧统计
type totals struct {
	frames         int
	skipped        int
	released       int
	activated      int
	merges         int
	splits         int
	skippedSplits  int
	collected      int
	collectedValue int
	fired          int
	fireRejected   int
	impacts        int
	refunded       int
	peakActive     int
}

func (t *totals) add(s simulation.FrameStats) {
	t.frames++
	if s.PhysicsSkipped {
		t.skipped++
	}
	t.released += s.Released
	t.activated += s.Activated
	t.merges += s.Merge.Merges
	t.splits += s.Merge.Splits
	t.skippedSplits += s.Merge.SkippedSplits
	t.collected += s.Attraction.Collected
	t.collectedValue += s.Attraction.CollectedValue
	t.impacts += s.Projectiles.Impacts
	t.refunded += s.Projectiles.Refunded
	if s.ActiveCount > t.peakActive {
		t.peakActive = s.ActiveCount
	}
}

func loadConfig(path string) (*config.SimulationConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && path == config.DefaultConfigPath {
			return config.DefaultSimulationConfig(), nil
		}
		return nil, err
	}
	return config.LoadSimulationConfig(path)
}

func openStore(slot string) *game.StateStore {
	manager, err := gdata.Open(gdata.Config{AppName: "tidewater"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: save storage unavailable: %v\n", err)
		return game.NewStateStore(nil, slot)
	}
	return game.NewStateStore(manager, slot)
}

func main() {
	flag.Parse()
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var terrain game.HeightField = game.FlatTerrain{Y: cfg.World.GroundY}
	if *waveFlag > 0 {
		terrain = game.WaveTerrain{Amplitude: *waveFlag, Wavelength: 40}
	}

	clock := game.NewManualClock(time.Unix(0, 0))
	agent := &game.StaticAgent{}
	sim, err := simulation.New(cfg,
		simulation.WithTerrain(terrain),
		simulation.WithAgent(agent),
		simulation.WithClock(clock),
		simulation.WithRand(rand.New(rand.NewSource(*seedFlag))),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create simulation: %v\n", err)
		os.Exit(1)
	}

	if *restoreFlag != "" {
		if err := sim.Restore(openStore(*restoreFlag)); err != nil {
			fmt.Fprintf(os.Stderr, "restore %q failed: %v\n", *restoreFlag, err)
			os.Exit(1)
		}
		fmt.Printf("Restored %d particles from %q\n", sim.ActiveCount(), *restoreFlag)
	}

	var t totals
	attracting := false
	step := time.Duration(frameDelta * float64(time.Second))

	start := time.Now()
	for i := 1; i <= *framesFlag; i++ {
		agent.Position.X += *walkFlag * frameDelta
		agent.Position.Y = terrain.Height(agent.Position.X, agent.Position.Z)

		if *attractFlag > 0 && i%*attractFlag == 0 {
			attracting = !attracting
		}
		if attracting {
			target := agent.Position.Add(vmath.V3(3, 0, 0))
			sim.SetAttractionTarget(&target)
		} else {
			sim.SetAttractionTarget(nil)
		}

		if *fireFlag > 0 && i%*fireFlag == 0 {
			origin := agent.Position.Add(vmath.V3(0, 1.5, 0))
			if _, err := sim.Fire(origin, vmath.V3(0.3, 0.4, 1)); err != nil {
				t.fireRejected++
			} else {
				t.fired++
			}
		}

		clock.Advance(step)
		t.add(sim.Update(frameDelta))
	}
	elapsed := time.Since(start)

	fmt.Printf("Frames:        %d (%.2fs simulated, %v wall, %.1f µs/frame)\n",
		t.frames, float64(t.frames)*frameDelta, elapsed.Round(time.Millisecond),
		float64(elapsed.Microseconds())/float64(max(t.frames, 1)))
	fmt.Printf("Particles:     active=%d peak=%d capacity=%d ceiling=%d\n",
		sim.ActiveCount(), t.peakActive, sim.PoolCapacity(), cfg.Pool.MaxLiveCount)
	fmt.Printf("Activation:    activated=%d released=%d\n", t.activated, t.released)
	fmt.Printf("Merge:         merges=%d splits=%d skippedSplits=%d\n", t.merges, t.splits, t.skippedSplits)
	fmt.Printf("Collection:    particles=%d value=%d\n", t.collected, t.collectedValue)
	fmt.Printf("Projectiles:   fired=%d rejected=%d impacts=%d refunded=%d\n", t.fired, t.fireRejected, t.impacts, t.refunded)
	fmt.Printf("Resources:     %d / %d\n", sim.ResourceAmount(), sim.ResourceCapacity())
	if t.skipped > 0 {
		fmt.Printf("Skipped steps: %d\n", t.skipped)
	}

	if *saveFlag != "" {
		if err := sim.Save(openStore(*saveFlag)); err != nil {
			fmt.Fprintf(os.Stderr, "save %q failed: %v\n", *saveFlag, err)
			os.Exit(1)
		}
		fmt.Printf("Saved to slot %q\n", *saveFlag)
	}
}
