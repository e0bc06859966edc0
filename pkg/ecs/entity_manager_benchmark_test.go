package ecs

import "testing"

type benchmarkParticle struct {
	X, Y, Z    float64
	VX, VY, VZ float64
	Radius     float64
}

// BenchmarkAcquireRelease 获取/释放循环，应为零分配
func BenchmarkAcquireRelease(b *testing.B) {
	p := NewPool[benchmarkParticle](256)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id, _, ok := p.Acquire()
		if ok {
			p.Release(id)
		}
	}
}

// BenchmarkActiveIDs 复用切片收集活跃 ID
func BenchmarkActiveIDs(b *testing.B) {
	p := NewPool[benchmarkParticle](256)
	for i := 0; i < 128; i++ {
		p.AcquireID(EntityID(i * 2))
	}
	scratch := make([]EntityID, 0, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scratch = p.ActiveIDs(scratch[:0])
	}
}

func TestAcquireReleaseDoesNotAllocate(t *testing.T) {
	p := NewPool[benchmarkParticle](64)
	scratch := make([]EntityID, 0, 64)

	allocs := testing.AllocsPerRun(100, func() {
		id, _, ok := p.Acquire()
		if ok {
			p.Release(id)
		}
		scratch = p.ActiveIDs(scratch[:0])
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations per run, got %f", allocs)
	}
}
