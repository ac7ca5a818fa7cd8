package hardware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispenser(t *testing.T) (*Dispenser, *MemGPIO) {
	t.Helper()
	gpio := NewMemGPIO()
	d := NewDispenser(gpio, 16, 14, time.Millisecond)
	require.NoError(t, d.Setup())
	return d, gpio
}

// 测试出票线空闲为高
func TestDispenserIdleLevels(t *testing.T) {
	_, gpio := newTestDispenser(t)

	notch, err := gpio.Get(16)
	require.NoError(t, err)
	assert.True(t, notch, "出票线空闲应为高电平")

	counter, err := gpio.Get(14)
	require.NoError(t, err)
	assert.False(t, counter, "计数器空闲应为低电平")
}

// 测试脉冲数等于票数
func TestDispensePulseCount(t *testing.T) {
	d, gpio := newTestDispenser(t)

	n, err := d.Dispense(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// 出票线5个低脉冲，计数器5格
	assert.Equal(t, 5, gpio.FallingWrites(16))
	assert.Equal(t, 5, gpio.RisingWrites(14))

	// 结束后恢复空闲电平
	notch, _ := gpio.Get(16)
	assert.True(t, notch)
	counter, _ := gpio.Get(14)
	assert.False(t, counter)
}

// 测试零张和负数直接返回
func TestDispenseNonPositive(t *testing.T) {
	d, gpio := newTestDispenser(t)

	n, err := d.Dispense(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = d.Dispense(context.Background(), -3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, 0, gpio.FallingWrites(16))
}

// 测试取消后中途停止并恢复空闲电平
func TestDispenseCanceled(t *testing.T) {
	d, gpio := newTestDispenser(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := d.Dispense(ctx, 10)
	assert.Error(t, err)
	assert.Less(t, n, 10)

	// 取消路径必须恢复空闲电平
	notch, _ := gpio.Get(16)
	assert.True(t, notch)
	counter, _ := gpio.Get(14)
	assert.False(t, counter)
}

// 测试球门开关和状态回读
func TestBallGate(t *testing.T) {
	gpio := NewMemGPIO()
	gate := NewBallGate(gpio, 17)
	require.NoError(t, gate.Setup())

	assert.False(t, gate.IsOpen())

	require.NoError(t, gate.Open())
	assert.True(t, gate.IsOpen())

	require.NoError(t, gate.Close())
	assert.False(t, gate.IsOpen())
}

// 测试机械计数器单脉冲
func TestCounterOutputTick(t *testing.T) {
	gpio := NewMemGPIO()
	c := NewCounterOutput(gpio, 15, time.Millisecond, "credit_counter")
	require.NoError(t, c.Setup())

	c.Tick()
	c.Tick()

	assert.Equal(t, 2, gpio.RisingWrites(15))

	level, err := gpio.Get(15)
	require.NoError(t, err)
	assert.False(t, level)
}

// 测试移位寄存器推送一个字节产生八个时钟沿
func TestDisplayDriverPush(t *testing.T) {
	gpio := NewMemGPIO()
	d := NewDisplayDriver(gpio, 23, 22, 21, 20)
	require.NoError(t, d.Setup())

	require.NoError(t, d.Push(0b11111100))

	assert.Equal(t, 8, gpio.RisingWrites(20))
	// 推送期间锁存先升后降
	assert.Equal(t, 1, gpio.RisingWrites(22))
	assert.Equal(t, 1, gpio.FallingWrites(22))
}

// 测试显示刷新循环持续推送空闲段码，取消后停止
func TestDisplayDriverRefreshLoop(t *testing.T) {
	gpio := NewMemGPIO()
	d := NewDisplayDriver(gpio, 23, 22, 21, 20)
	require.NoError(t, d.Setup())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for gpio.RisingWrites(22) < 3 {
		if time.Now().After(deadline) {
			t.Fatal("显示刷新循环未推送")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	// 每次推送一个锁存沿和八个时钟沿
	pushes := gpio.RisingWrites(22)
	assert.GreaterOrEqual(t, pushes, 3)
	assert.Equal(t, pushes*8, gpio.RisingWrites(20))
	assert.Equal(t, pushes, gpio.FallingWrites(22))
}
