package game

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/decker502/tidewater/pkg/ecs"
	"github.com/decker502/tidewater/pkg/vmath"
	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// StateVersion 当前存档格式版本
// 版本 1 没有槽位 ID 和弹射物，仍可读取
const StateVersion = 2

// ErrNoSavedState 存储中没有存档
var ErrNoSavedState = errors.New("no saved state")

// SavedParticle 一个活跃粒子的持久化状态
type SavedParticle struct {
	ID       ecs.EntityID `yaml:"id"` // 池槽位，恢复时优先放回原槽位
	Position vmath.Vec3   `yaml:"position"`
	Velocity vmath.Vec3   `yaml:"velocity"`
	Radius   float64      `yaml:"radius"`
}

// SavedProjectile 一枚飞行中弹射物的持久化状态
type SavedProjectile struct {
	ID        ecs.EntityID `yaml:"id"`
	Position  vmath.Vec3   `yaml:"position"`
	Velocity  vmath.Vec3   `yaml:"velocity"`
	Direction vmath.Vec3   `yaml:"direction"`
	Cost      int          `yaml:"cost"`
	Age       float64      `yaml:"age"` // 保存时已飞行的秒数
}

// SavedState 模拟存档
// 只保存活跃粒子、飞行中的弹射物与资源量；池容量、配置等由加载方自己决定
type SavedState struct {
	Version     int               `yaml:"version"`
	SavedAt     time.Time         `yaml:"savedAt"`
	Tick        int               `yaml:"tick"`
	Resources   int               `yaml:"resources"`
	Particles   []SavedParticle   `yaml:"particles"`
	Projectiles []SavedProjectile `yaml:"projectiles,omitempty"`
}

// StateStore 模拟存档存储
//
// 通过 gdata 跨平台存储 YAML 数据，每个 slot 对应一个对象属性。
// gdataManager 为 nil 时进入降级模式：存档只保留在内存中，进程退出后丢失。
type StateStore struct {
	gdataManager *gdata.Manager
	slot         string

	memory []byte // 降级模式下的存档
}

const stateObject = "simulation"

// NewStateStore 创建存档存储
//
// 参数：
//   - gdataManager: gdata 存储管理器，可为 nil（降级模式）
//   - slot: 存档槽位名，为空时使用 "default"
func NewStateStore(gdataManager *gdata.Manager, slot string) *StateStore {
	if slot == "" {
		slot = "default"
	}
	return &StateStore{
		gdataManager: gdataManager,
		slot:         slot,
	}
}

// Persistent 返回存档是否会写入磁盘
func (s *StateStore) Persistent() bool {
	return s.gdataManager != nil
}

// Slot 返回存档槽位名
func (s *StateStore) Slot() string {
	return s.slot
}

// Exists 检查槽位中是否有存档
func (s *StateStore) Exists() bool {
	if s.gdataManager == nil {
		return s.memory != nil
	}
	return s.gdataManager.ObjectPropExists(stateObject, s.slot)
}

// Save 保存存档
//
// 返回：
//   - error: 序列化或写入失败时返回错误
func (s *StateStore) Save(state *SavedState) error {
	if state == nil {
		return fmt.Errorf("saved state is nil")
	}
	state.Version = StateVersion

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if s.gdataManager == nil {
		s.memory = data
		return nil
	}

	if err := s.gdataManager.SaveObjectProp(stateObject, s.slot, data); err != nil {
		return fmt.Errorf("failed to save state %q: %w", s.slot, err)
	}

	log.Printf("[StateStore] Saved %d particles to slot %q", len(state.Particles), s.slot)
	return nil
}

// Load 读取存档
//
// 返回：
//   - *SavedState: 存档内容
//   - error: 没有存档时返回 ErrNoSavedState；读取、解析失败或版本不兼容时返回错误
func (s *StateStore) Load() (*SavedState, error) {
	var data []byte
	if s.gdataManager == nil {
		if s.memory == nil {
			return nil, ErrNoSavedState
		}
		data = s.memory
	} else {
		if !s.gdataManager.ObjectPropExists(stateObject, s.slot) {
			return nil, ErrNoSavedState
		}
		loaded, err := s.gdataManager.LoadObjectProp(stateObject, s.slot)
		if err != nil {
			return nil, fmt.Errorf("failed to load state %q: %w", s.slot, err)
		}
		data = loaded
	}

	var state SavedState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Version < 1 || state.Version > StateVersion {
		return nil, fmt.Errorf("unsupported state version %d (want 1..%d)", state.Version, StateVersion)
	}

	return &state, nil
}
