package simulation

import (
	"github.com/decker502/tidewater/pkg/entities"
	"github.com/decker502/tidewater/pkg/game"
	"github.com/decker502/tidewater/pkg/physics"
	"github.com/decker502/tidewater/pkg/systems"
)

// 模拟核心返回的错误，调用方使用 errors.Is 判断
var (
	// ErrInsufficientResource 资源不足（发射被拒绝，状态不变）
	ErrInsufficientResource = systems.ErrInsufficientResource

	// ErrPoolExhausted 池中没有空闲槽位
	ErrPoolExhausted = entities.ErrPoolExhausted

	// ErrDegenerateDirection 方向为零向量或坐标非有限
	ErrDegenerateDirection = entities.ErrDegenerateDirection

	// ErrInvalidTimestep delta 超出合理范围，本帧物理步进被跳过
	ErrInvalidTimestep = physics.ErrInvalidTimestep

	// ErrNoSavedState 存档槽位为空
	ErrNoSavedState = game.ErrNoSavedState
)
