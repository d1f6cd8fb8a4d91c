package sigchan

// Chan 不带数据的通知 channel。缓冲满时新的通知与已有的合并。
type Chan struct {
	c chan struct{}
}

func New(bufferSize int) *Chan {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Chan{c: make(chan struct{}, bufferSize)}
}

// Emit 非阻塞发送；返回 false 表示已有未消费的通知
func (c *Chan) Emit() bool {
	select {
	case c.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// C 用于 select
func (c *Chan) C() <-chan struct{} {
	return c.c
}
