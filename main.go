// Package main 是流体粒子模拟的交互式查看器
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	-config <path>   配置文件路径（默认使用嵌入的 data/simulation.yaml）
//	-seed <n>        随机种子（0 表示使用当前时间）
//	-scale <px>      每世界单位的像素数
//	-verbose         输出日志
//
// Controls:
//
//	WASD          - 移动代理（激活中心随之移动）
//	鼠标左键按住   - 吸引并收集粒子
//	Space         - 向鼠标方向发射弹射物（消耗资源）
//	R             - 回收所有粒子
//	F5 / F9       - 保存 / 读取存档
//	F11           - 切换全屏
//	Q/Escape      - 退出
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/decker502/tidewater/pkg/app"
	"github.com/decker502/tidewater/pkg/embedded"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	configFlag  = flag.String("config", "", "Simulation config path (default: embedded data/simulation.yaml)")
	seedFlag    = flag.Int64("seed", 0, "Random seed (0 = time based)")
	scaleFlag   = flag.Float64("scale", 12, "Pixels per world unit")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

func main() {
	flag.Parse()

	embedded.Init(dataFS)

	viewer, err := app.NewApp(app.Config{
		Verbose:    *verboseFlag,
		ConfigPath: *configFlag,
		Seed:       *seedFlag,
		Scale:      *scaleFlag,
	})
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Failed to create viewer: %v", err)
	}

	ebiten.SetWindowSize(app.ScreenWidth, app.ScreenHeight)
	ebiten.SetWindowTitle("Tidewater - Fluid Particle Viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil && !errors.Is(err, ebiten.Termination) {
		log.SetOutput(os.Stderr)
		log.Fatal(err)
	}
}
