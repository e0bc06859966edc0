// Package main 在终端中以俯视字符画运行流体粒子模拟
//
// Usage:
//
//	go run ./cmd/sim-tui [flags]
//
// Flags:
//
//	-config <path>   配置文件路径（默认 data/simulation.yaml，不存在时使用内置默认值）
//	-seed <n>        随机种子（0 表示使用当前时间）
//	-mute            关闭收集提示音
//
// Controls:
//
//	方向键       - 移动代理
//	Space        - 开关吸引（目标在代理前方）
//	f            - 向前方发射弹射物
//	c            - 回收所有粒子
//	q / Escape   - 退出
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

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/simulation"
	"github.com/decker502/tidewater/pkg/utils"
	"github.com/decker502/tidewater/pkg/vmath"
	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	frameDelta     = 1.0 / 60.0
	agentStep      = 1.0 // 每次按键移动的世界单位
	attractAhead   = 4.0 // 吸引目标在代理前方的距离
	chimeFrequency = 880
	sampleRate     = beep.SampleRate(44100)
)

var (
	configFlag = flag.String("config", config.DefaultConfigPath, "Simulation config path")
	seedFlag   = flag.Int64("seed", 0, "Random seed (0 = time based)")
	muteFlag   = flag.Bool("mute", false, "Disable collection chime")
)

var (
	particleStyle   = tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue)
	bigStyle        = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	sleepStyle      = tcell.StyleDefault.Foreground(tcell.ColorNavy)
	projectileStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	agentStyle      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	targetStyle     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	hudStyle        = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
)

// Terminal 终端查看器
type Terminal struct {
	screen tcell.Screen
	sim    *simulation.Simulation
	agent  *game.StaticAgent
	view   utils.TopDownView

	facing     vmath.Vec3
	attracting bool
	particles  []simulation.ParticleState
	stats      simulation.FrameStats
	status     string

	audioInit bool
}

// NewTerminal 初始化终端和模拟
func NewTerminal(cfg *config.SimulationConfig, seed int64, mute bool) (*Terminal, error) {
	agent := &game.StaticAgent{}
	sim, err := simulation.New(cfg,
		simulation.WithAgent(agent),
		simulation.WithRand(rand.New(rand.NewSource(seed))),
	)
	if err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()

	t := &Terminal{
		screen:    screen,
		sim:       sim,
		agent:     agent,
		facing:    vmath.V3(1, 0, 0),
		particles: make([]simulation.ParticleState, 0, sim.PoolCapacity()),
	}
	t.resize()

	if !mute {
		// 没有声音也能运行
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err == nil {
			t.audioInit = true
		} else {
			t.status = fmt.Sprintf("audio disabled: %v", err)
		}
	}

	return t, nil
}

// resize 终端字符约为 1:2，纵向每行对应两个世界单位
func (t *Terminal) resize() {
	w, h := t.screen.Size()
	t.view = utils.NewTopDownView(float64(w), float64(h*2), 1)
	t.view.Follow(t.agent.Position)
}

func (t *Terminal) playChime() {
	if !t.audioInit {
		return
	}
	sine, err := generators.SineTone(sampleRate, chimeFrequency)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(40*time.Millisecond), sine))
}

// handleInput 返回 false 表示退出
func (t *Terminal) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			t.move(vmath.V3(0, 0, -1))
		case tcell.KeyDown:
			t.move(vmath.V3(0, 0, 1))
		case tcell.KeyLeft:
			t.move(vmath.V3(-1, 0, 0))
		case tcell.KeyRight:
			t.move(vmath.V3(1, 0, 0))
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				t.attracting = !t.attracting
			case 'f':
				t.fire()
			case 'c':
				t.status = fmt.Sprintf("cleared %d particles", t.sim.Clear())
				t.attracting = false
			}
		}
	case *tcell.EventResize:
		t.screen.Sync()
		t.resize()
	}
	return true
}

func (t *Terminal) move(dir vmath.Vec3) {
	t.facing = dir
	t.agent.Position = t.agent.Position.Add(dir.Scale(agentStep))
	t.agent.Position.Y = t.sim.Terrain().Height(t.agent.Position.X, t.agent.Position.Z)
}

func (t *Terminal) fire() {
	origin := t.agent.Position.Add(vmath.V3(0, 1.5, 0))
	dir := t.facing.Add(vmath.V3(0, 0.35, 0))
	if _, err := t.sim.Fire(origin, dir); err != nil {
		if errors.Is(err, simulation.ErrInsufficientResource) {
			t.status = fmt.Sprintf("not enough water (%d/%d)", t.sim.ResourceAmount(), t.sim.Config().Projectile.Cost)
			return
		}
		t.status = err.Error()
	}
}

// step 推进一帧模拟
func (t *Terminal) step() {
	if t.attracting {
		target := t.agent.Position.Add(t.facing.Scale(attractAhead))
		t.sim.SetAttractionTarget(&target)
	} else {
		t.sim.SetAttractionTarget(nil)
	}

	t.stats = t.sim.Update(frameDelta)
	if t.stats.Attraction.Collected > 0 {
		t.playChime()
	}
	t.particles = t.sim.Snapshot(t.particles[:0])
	t.view.Follow(t.agent.Position)
}

func (t *Terminal) plot(p vmath.Vec3, r rune, style tcell.Style) {
	sx, sy := t.view.WorldToScreen(p)
	if !t.view.OnScreen(sx, sy, 0) {
		return
	}
	t.screen.SetContent(int(sx), int(sy/2), r, nil, style)
}

func (t *Terminal) draw() {
	t.screen.Clear()

	for i := range t.particles {
		p := &t.particles[i]
		switch {
		case p.Sleeping:
			t.plot(p.Position, '.', sleepStyle)
		case p.Radius > 1.1:
			t.plot(p.Position, 'O', bigStyle)
		default:
			t.plot(p.Position, 'o', particleStyle)
		}
	}
	t.sim.ForEachProjectile(func(p *components.ProjectileComponent) bool {
		t.plot(p.Position, '*', projectileStyle)
		return true
	})
	if target, ok := t.sim.AttractionTarget(); ok {
		t.plot(target, '+', targetStyle)
	}
	t.plot(t.agent.Position, '@', agentStyle)

	hud := fmt.Sprintf(" tick %d | particles %d/%d | water %d/%d | projectiles %d | %s ",
		t.stats.Tick, t.stats.ActiveCount, t.sim.PoolCapacity(),
		t.sim.ResourceAmount(), t.sim.ResourceCapacity(), t.sim.ProjectileCount(), t.status)
	for i, r := range []rune(hud) {
		t.screen.SetContent(i, 0, r, nil, hudStyle)
	}

	t.screen.Show()
}

func (t *Terminal) run() {
	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !t.handleInput(ev) {
				return
			}
		case <-ticker.C:
			t.step()
			t.draw()
		}
	}
}

func (t *Terminal) cleanup() {
	if t.audioInit {
		speaker.Close()
	}
	t.screen.Fini()
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

func main() {
	flag.Parse()
	// 日志会破坏终端画面
	log.SetOutput(io.Discard)

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	term, err := NewTerminal(cfg, seed, *muteFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer term.cleanup()

	term.run()
}
