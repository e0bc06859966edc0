package ecs

// EntityID 是池中槽位的稳定下标
// 同一个 Pool 的生命周期内，ID 与槽位一一对应，不会被重新分配
type EntityID int

// InvalidEntity 表示无效 ID（获取失败时返回）
const InvalidEntity EntityID = -1

// Pool 是固定容量的实体池
//
// 所有槽位在构造时一次性分配，之后 Acquire/Release 只在空闲栈上移动下标，
// 不产生任何堆分配。消费者应把 EntityID 当作稳定句柄，而不是依赖槽位内字段的值。
type Pool[T any] struct {
	items  []T
	active []bool

	// 空闲栈及每个槽位在空闲栈中的位置（活跃槽位为 -1），用于 O(1) 指定槽位获取
	free    []EntityID
	freePos []int
}

// NewPool 创建容量为 capacity 的实体池，所有槽位初始为非活跃
func NewPool[T any](capacity int) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool[T]{
		items:   make([]T, capacity),
		active:  make([]bool, capacity),
		free:    make([]EntityID, capacity),
		freePos: make([]int, capacity),
	}
	// 逆序入栈，使 Acquire 优先返回低下标槽位
	for i := 0; i < capacity; i++ {
		id := EntityID(capacity - 1 - i)
		p.free[i] = id
		p.freePos[id] = i
	}
	return p
}

// Capacity 返回池容量
func (p *Pool[T]) Capacity() int {
	return len(p.items)
}

// ActiveCount 返回活跃槽位数
func (p *Pool[T]) ActiveCount() int {
	return len(p.items) - len(p.free)
}

// InactiveCount 返回空闲槽位数
func (p *Pool[T]) InactiveCount() int {
	return len(p.free)
}

// Valid 检查 ID 是否落在池的范围内
func (p *Pool[T]) Valid(id EntityID) bool {
	return id >= 0 && int(id) < len(p.items)
}

// IsActive 检查槽位是否活跃
func (p *Pool[T]) IsActive(id EntityID) bool {
	return p.Valid(id) && p.active[id]
}

// Get 返回槽位数据指针（无论是否活跃）
// ID 越界时返回 nil
func (p *Pool[T]) Get(id EntityID) *T {
	if !p.Valid(id) {
		return nil
	}
	return &p.items[id]
}

// Acquire 从空闲栈取出一个槽位并标记为活跃
// 池已满时返回 (InvalidEntity, nil, false)，池不会扩容
func (p *Pool[T]) Acquire() (EntityID, *T, bool) {
	n := len(p.free)
	if n == 0 {
		return InvalidEntity, nil, false
	}
	id := p.free[n-1]
	p.takeFree(id)
	return id, &p.items[id], true
}

// AcquireID 获取指定的空闲槽位
// 槽位越界或已活跃时返回 false
func (p *Pool[T]) AcquireID(id EntityID) (*T, bool) {
	if !p.Valid(id) || p.active[id] {
		return nil, false
	}
	p.takeFree(id)
	return &p.items[id], true
}

// Release 将活跃槽位归还空闲栈（幂等）
// 返回 true 表示本次调用实际归还；重置槽位内容由调用方负责
func (p *Pool[T]) Release(id EntityID) bool {
	if !p.IsActive(id) {
		return false
	}
	p.active[id] = false
	p.freePos[id] = len(p.free)
	p.free = append(p.free, id) // 容量固定为 capacity，不会重新分配
	return true
}

// ActiveIDs 将所有活跃 ID 按升序追加到 dst 并返回
// 调用方传入复用的切片（dst[:0]）即可避免分配
func (p *Pool[T]) ActiveIDs(dst []EntityID) []EntityID {
	for i, on := range p.active {
		if on {
			dst = append(dst, EntityID(i))
		}
	}
	return dst
}

// InactiveIDs 将所有空闲 ID 按升序追加到 dst 并返回
func (p *Pool[T]) InactiveIDs(dst []EntityID) []EntityID {
	for i, on := range p.active {
		if !on {
			dst = append(dst, EntityID(i))
		}
	}
	return dst
}

// ForEachActive 按 ID 升序遍历活跃槽位
// 回调中释放当前槽位是安全的；回调返回 false 时提前结束
func (p *Pool[T]) ForEachActive(fn func(id EntityID, item *T) bool) {
	for i := range p.items {
		if !p.active[i] {
			continue
		}
		if !fn(EntityID(i), &p.items[i]) {
			return
		}
	}
}

// takeFree 从空闲栈中移除指定 ID（与栈顶交换后弹出）
func (p *Pool[T]) takeFree(id EntityID) {
	pos := p.freePos[id]
	last := len(p.free) - 1
	moved := p.free[last]
	p.free[pos] = moved
	p.freePos[moved] = pos
	p.free = p.free[:last]
	p.freePos[id] = -1
	p.active[id] = true
}
