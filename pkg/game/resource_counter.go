package game

// ResourceCounter 是被收集的水资源计数器，取值始终在 [0, Capacity] 内
//
// 所有修改都在单一模拟线程内同步完成，不存在可观察的中间状态。
// 计数器由调用方创建并显式注入到需要它的系统中，不提供全局实例。
type ResourceCounter struct {
	amount   int
	capacity int
}

// NewResourceCounter 创建资源计数器
//
// 参数:
//   - capacity: 上限（负值视为 0）
//   - initial: 初始值（会被限制到 [0, capacity]）
func NewResourceCounter(capacity, initial int) *ResourceCounter {
	if capacity < 0 {
		capacity = 0
	}
	rc := &ResourceCounter{capacity: capacity}
	rc.SetAmount(initial)
	return rc
}

// Collect 增加资源，带上限检查
// 非正数被忽略；返回增加后的数量
func (rc *ResourceCounter) Collect(amount int) int {
	if amount <= 0 {
		return rc.amount
	}
	if amount > rc.capacity-rc.amount {
		rc.amount = rc.capacity
	} else {
		rc.amount += amount
	}
	return rc.amount
}

// Consume 扣除资源，如果资源不足返回 false
// 只有当资源充足时才会扣除，失败时不修改任何状态
func (rc *ResourceCounter) Consume(amount int) bool {
	if amount < 0 || rc.amount < amount {
		return false
	}
	rc.amount -= amount
	return true
}

// CanAfford 检查当前资源是否足够
func (rc *ResourceCounter) CanAfford(amount int) bool {
	return amount >= 0 && rc.amount >= amount
}

// Amount 返回当前资源量
func (rc *ResourceCounter) Amount() int {
	return rc.amount
}

// SetAmount 直接设置资源量（限制到 [0, Capacity]）
func (rc *ResourceCounter) SetAmount(amount int) {
	switch {
	case amount < 0:
		rc.amount = 0
	case amount > rc.capacity:
		rc.amount = rc.capacity
	default:
		rc.amount = amount
	}
}

// Capacity 返回上限
func (rc *ResourceCounter) Capacity() int {
	return rc.capacity
}

// Fraction 返回 amount/capacity，供 UI 仪表显示
func (rc *ResourceCounter) Fraction() float64 {
	if rc.capacity == 0 {
		return 0
	}
	return float64(rc.amount) / float64(rc.capacity)
}
