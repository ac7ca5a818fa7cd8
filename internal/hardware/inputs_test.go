package hardware

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 可控时钟，模拟边沿之间的时间间隔
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCoinWatcher(t *testing.T, gpio *MemGPIO, clock *fakeClock) *CoinWatcher {
	t.Helper()
	w := NewCoinWatcher(gpio, 4, 2500*time.Millisecond)
	w.now = clock.Now
	require.NoError(t, w.Register())
	return w
}

// 测试去抖窗口内的第二个边沿被丢弃
func TestCoinWatcherDebounce(t *testing.T) {
	gpio := NewMemGPIO()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestCoinWatcher(t, gpio, clock)

	var accepted atomic.Int32
	w.SetAcceptedCallback(func() { accepted.Add(1) })

	// 第一个边沿接受
	gpio.Pulse(4)
	assert.Equal(t, int32(1), accepted.Load())

	// 100ms后的第二个边沿落在窗口内，丢弃
	clock.Advance(100 * time.Millisecond)
	gpio.Pulse(4)
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int64(1), w.Accepted())
	assert.Equal(t, int64(1), w.Dropped())

	// 窗口外的边沿再次接受
	clock.Advance(3 * time.Second)
	gpio.Pulse(4)
	assert.Equal(t, int32(2), accepted.Load())
}

// 测试接受的投币之间至少间隔去抖窗口
func TestCoinWatcherMinimumSpacing(t *testing.T) {
	gpio := NewMemGPIO()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestCoinWatcher(t, gpio, clock)

	var accepted atomic.Int32
	w.SetAcceptedCallback(func() { accepted.Add(1) })

	// 每500ms一个边沿，连续十个
	for i := 0; i < 10; i++ {
		gpio.Pulse(4)
		clock.Advance(500 * time.Millisecond)
	}

	// 2500ms窗口下只有第1个和第7个（间隔3000ms）被接受
	assert.Equal(t, int32(2), accepted.Load())
}

// 测试机械抖动（毫秒级连续边沿）只记一枚
func TestCoinWatcherBounceBurst(t *testing.T) {
	gpio := NewMemGPIO()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestCoinWatcher(t, gpio, clock)

	var accepted atomic.Int32
	w.SetAcceptedCallback(func() { accepted.Add(1) })

	for i := 0; i < 20; i++ {
		gpio.Pulse(4)
		clock.Advance(time.Millisecond)
	}

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int64(19), w.Dropped())
}

// 测试上下光电任一路边沿都计一次过球
func TestOptoWatcherBothSensors(t *testing.T) {
	gpio := NewMemGPIO()
	w := NewOptoWatcher(gpio, 2, 3)

	var crossings atomic.Int32
	w.SetCrossedCallback(func() { crossings.Add(1) })
	require.NoError(t, w.Register())

	gpio.Pulse(2) // 上光电
	gpio.Pulse(3) // 下光电
	gpio.Pulse(2)

	assert.Equal(t, int32(3), crossings.Load())
	assert.Equal(t, int64(3), w.Crossings())
}

// 测试光电高电平保持不会重复计数
func TestOptoWatcherLevelHeld(t *testing.T) {
	gpio := NewMemGPIO()
	w := NewOptoWatcher(gpio, 2, 3)

	var crossings atomic.Int32
	w.SetCrossedCallback(func() { crossings.Add(1) })
	require.NoError(t, w.Register())

	gpio.Inject(2, true)
	gpio.Inject(2, true) // 电平保持，非边沿
	gpio.Inject(2, false)

	assert.Equal(t, int32(1), crossings.Load())
}

// 测试编程按钮初始化为上拉输入
func TestSetupButtons(t *testing.T) {
	gpio := NewMemGPIO()
	require.NoError(t, SetupButtons(gpio, 5, 6, 7))

	// 上拉输入空闲为高
	for _, pin := range []Pin{5, 6, 7} {
		level, err := gpio.Get(pin)
		require.NoError(t, err)
		assert.True(t, level)
	}
}
