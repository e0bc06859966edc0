// Package app 提供流体粒子查看器的核心包装器
//
// 该包将查看器初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/decker502/tidewater/pkg/components"
	"github.com/decker502/tidewater/pkg/config"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/simulation"
	"github.com/decker502/tidewater/pkg/utils"
	"github.com/decker502/tidewater/pkg/vmath"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/quasilyte/gdata/v2"
)

const (
	// ScreenWidth 逻辑屏幕宽度
	ScreenWidth = 1024
	// ScreenHeight 逻辑屏幕高度
	ScreenHeight = 768

	agentSpeed  = 15.0 // 世界单位/秒
	agentHeight = 1.5  // 发射点相对地面的高度
	statusTTL   = 3 * time.Second

	// AppName 存档目录名
	AppName  = "tidewater"
	saveSlot = "viewer"
)

var (
	backgroundColor = color.RGBA{R: 34, G: 52, B: 40, A: 255}
	agentColor      = color.RGBA{R: 230, G: 90, B: 70, A: 255}
	targetColor     = color.RGBA{R: 250, G: 230, B: 120, A: 255}
	projectileColor = color.RGBA{R: 240, G: 240, B: 255, A: 255}
)

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// ConfigPath 模拟配置文件路径，为空则使用嵌入的默认配置
	ConfigPath string
	// Seed 随机种子，0 表示使用当前时间
	Seed int64
	// Scale 每世界单位的像素数，<= 0 使用默认值
	Scale float64
}

// App 是查看器的核心包装器，实现 ebiten.Game 接口
type App struct {
	sim   *simulation.Simulation
	agent *game.StaticAgent
	store *game.StateStore
	view  utils.TopDownView

	particles []simulation.ParticleState
	stats     simulation.FrameStats
	aim       vmath.Vec3

	status      string
	statusUntil time.Time
	hudFont     *text.GoTextFace

	pendingWindowSizeReset   bool
	windowSizeResetCountdown int
}

// NewApp 创建并初始化查看器
//
// 使用嵌入配置时，调用此函数前必须先调用 embedded.Init()。
func NewApp(cfg Config) (*App, error) {
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	simCfg, err := loadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 12
	}

	agent := &game.StaticAgent{}
	sim, err := simulation.New(simCfg,
		simulation.WithAgent(agent),
		simulation.WithRand(rand.New(rand.NewSource(seed))),
	)
	if err != nil {
		return nil, fmt.Errorf("模拟初始化失败: %w", err)
	}
	log.Printf("[App] Simulation ready (seed=%d)", seed)

	hudFont, err := loadHUDFont(hudFontSize)
	if err != nil {
		log.Printf("[App] Warning: %v (using debug font)", err)
	}

	return &App{
		hudFont:   hudFont,
		sim:       sim,
		agent:     agent,
		store:     openStore(AppName, saveSlot),
		view:      utils.NewTopDownView(ScreenWidth, ScreenHeight, scale),
		particles: make([]simulation.ParticleState, 0, sim.PoolCapacity()),
	}, nil
}

// loadConfig 优先读取指定文件，否则使用嵌入配置
func loadConfig(path string) (*config.SimulationConfig, error) {
	if path == "" {
		return config.LoadDefaultSimulationConfig(), nil
	}
	return config.LoadSimulationConfig(path)
}

// openStore 打开跨平台存档；不可用时降级为内存存档
func openStore(appName, slot string) *game.StateStore {
	manager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		log.Printf("[App] Warning: save storage unavailable: %v (saves kept in memory)", err)
		return game.NewStateStore(nil, slot)
	}
	return game.NewStateStore(manager, slot)
}

// Update 处理输入并推进一帧模拟
func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	a.updateWindow()

	dt := 1.0 / float64(ebiten.TPS())
	a.moveAgent(dt)
	a.view.Follow(a.agent.Position)

	mx, my := ebiten.CursorPosition()
	a.aim = a.view.ScreenToWorld(float64(mx), float64(my), 0)
	a.aim.Y = a.sim.Terrain().Height(a.aim.X, a.aim.Z)

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		target := a.aim
		a.sim.SetAttractionTarget(&target)
	} else {
		a.sim.SetAttractionTarget(nil)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		a.fire()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		n := a.sim.Clear()
		a.setStatus(fmt.Sprintf("Cleared %d particles", n))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.sim.Save(a.store); err != nil {
			a.setStatus(fmt.Sprintf("Save failed: %v", err))
		} else {
			a.setStatus("Saved")
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := a.sim.Restore(a.store); err != nil {
			a.setStatus(fmt.Sprintf("Load failed: %v", err))
		} else {
			a.setStatus("Loaded")
		}
	}

	a.stats = a.sim.Update(dt)
	a.particles = a.sim.Snapshot(a.particles[:0])
	return nil
}

// updateWindow 处理 F11 全屏切换
func (a *App) updateWindow() {
	// 退出全屏后需要等待几帧才能正确设置窗口大小
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
			a.pendingWindowSizeReset = false
		}
	}

	if !inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		return
	}
	if ebiten.IsFullscreen() {
		ebiten.SetFullscreen(false)
		if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
			ebiten.RestoreWindow()
		}
		a.pendingWindowSizeReset = true
		a.windowSizeResetCountdown = 3
		log.Printf("[App] Exit fullscreen, will reset window size in 3 frames")
	} else {
		ebiten.SetFullscreen(true)
	}
}

func (a *App) moveAgent(dt float64) {
	var dx, dz float64
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		dz--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		dz++
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		dx--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		dx++
	}
	if dx == 0 && dz == 0 {
		return
	}
	dir, _ := vmath.V3(dx, 0, dz).Normalize()
	a.agent.Position = a.agent.Position.Add(dir.Scale(agentSpeed * dt))
	a.agent.Position.Y = a.sim.Terrain().Height(a.agent.Position.X, a.agent.Position.Z)
}

// fire 从代理位置向鼠标方向发射，略微上抛
func (a *App) fire() {
	origin := a.agent.Position.Add(vmath.V3(0, agentHeight, 0))
	dir := a.aim.Sub(a.agent.Position)
	dir.Y = 0
	dir, l := dir.Normalize()
	if l == 0 {
		dir = vmath.V3(0, 0, -1)
	}
	dir.Y = 0.35

	if _, err := a.sim.Fire(origin, dir); err != nil {
		if errors.Is(err, simulation.ErrInsufficientResource) {
			a.setStatus(fmt.Sprintf("Not enough water (%d/%d)", a.sim.ResourceAmount(), a.sim.Config().Projectile.Cost))
			return
		}
		a.setStatus(fmt.Sprintf("Fire failed: %v", err))
	}
}

func (a *App) setStatus(msg string) {
	log.Printf("[App] %s", msg)
	a.status = msg
	a.statusUntil = time.Now().Add(statusTTL)
}

// Draw 绘制俯视图
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for i := range a.particles {
		p := &a.particles[i]
		sx, sy := a.view.WorldToScreen(p.Position)
		r := a.view.Length(p.Radius)
		if !a.view.OnScreen(sx, sy, r) {
			continue
		}
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), float32(r), particleColor(p), true)
	}

	a.sim.ForEachProjectile(func(p *components.ProjectileComponent) bool {
		sx, sy := a.view.WorldToScreen(p.Position)
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), 3, projectileColor, true)
		return true
	})

	ax, ay := a.view.WorldToScreen(a.agent.Position)
	vector.DrawFilledCircle(screen, float32(ax), float32(ay), 6, agentColor, true)

	if target, ok := a.sim.AttractionTarget(); ok {
		cfg := a.sim.Config().Attraction
		tx, ty := a.view.WorldToScreen(target)
		vector.StrokeCircle(screen, float32(tx), float32(ty), float32(a.view.Length(cfg.CollectionDistance)), 1.5, targetColor, true)
		vector.StrokeCircle(screen, float32(tx), float32(ty), float32(a.view.Length(cfg.Distance)), 1, targetColor, true)
	}

	a.drawHUD(screen)
}

// particleColor 颜色随高度变浅，休眠粒子偏暗
func particleColor(p *simulation.ParticleState) color.RGBA {
	h := math.Max(0, math.Min(1, p.Position.Y/8))
	c := color.RGBA{
		R: uint8(40 + 120*h),
		G: uint8(120 + 100*h),
		B: 230,
		A: 220,
	}
	if p.Sleeping {
		c.R /= 2
		c.G /= 2
		c.B = 160
	}
	return c
}

func (a *App) drawHUD(screen *ebiten.Image) {
	lines := []string{
		fmt.Sprintf("TPS: %.0f  Tick: %d", ebiten.ActualTPS(), a.stats.Tick),
		fmt.Sprintf("Particles: %d / %d (ceiling %d)", a.stats.ActiveCount, a.sim.PoolCapacity(), a.sim.Config().Pool.MaxLiveCount),
		fmt.Sprintf("Water: %d / %d", a.sim.ResourceAmount(), a.sim.ResourceCapacity()),
		fmt.Sprintf("Projectiles: %d", a.sim.ProjectileCount()),
		fmt.Sprintf("Agent: (%.1f, %.1f)", a.agent.Position.X, a.agent.Position.Z),
		"WASD move | LMB attract | Space fire | R clear | F5/F9 save/load | F11 fullscreen | Q quit",
	}
	for i, line := range lines {
		a.drawText(screen, line, 10, float64(10+i*18))
	}

	if a.status != "" && time.Now().Before(a.statusUntil) {
		a.drawText(screen, a.status, 10, ScreenHeight-24)
	}
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 全屏时使用黑色 letterbox，并用线性滤波缩放
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Simulation 返回底层模拟，用于退出前保存
func (a *App) Simulation() *simulation.Simulation {
	return a.sim
}

// Store 返回查看器使用的存档
func (a *App) Store() *game.StateStore {
	return a.store
}
