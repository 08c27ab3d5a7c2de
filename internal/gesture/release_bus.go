package gesture

import "sync"

// ReleaseBus phát sự kiện thả tay ở bất kỳ đâu trong tài liệu tới các listener đã đăng ký.
type ReleaseBus struct {
	mu        sync.Mutex
	listeners map[int]func()
	next      int
}

func NewReleaseBus() *ReleaseBus {
	return &ReleaseBus{listeners: make(map[int]func())}
}

// Subscribe đăng ký fn. Hàm trả về gỡ đăng ký, gọi nhiều lần vẫn an toàn.
func (b *ReleaseBus) Subscribe(fn func()) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *ReleaseBus) Release() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Len trả về số listener đang đăng ký.
func (b *ReleaseBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
