package app

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

const hudFontSize = 14

var hudTextColor = color.RGBA{R: 235, G: 240, B: 235, A: 255}

// loadHUDFont 使用内置的 Go Regular 字体创建 HUD 字体
func loadHUDFont(size float64) (*text.GoTextFace, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("无法创建字体源: %w", err)
	}
	return &text.GoTextFace{
		Source:    source,
		Size:      size,
		Direction: text.DirectionLeftToRight,
	}, nil
}

// drawText 绘制 HUD 文本；字体不可用时退回调试字体
func (a *App) drawText(screen *ebiten.Image, str string, x, y float64) {
	if a.hudFont == nil {
		ebitenutil.DebugPrintAt(screen, str, int(x), int(y))
		return
	}
	opts := &text.DrawOptions{}
	opts.GeoM.Translate(x, y)
	opts.ColorScale.ScaleWithColor(hudTextColor)
	text.Draw(screen, str, a.hudFont, opts)
}
