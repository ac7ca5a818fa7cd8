package hardware

import (
	"sync"
	"time"

	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// BallGate 球门继电器驱动，高电平保持开门
type BallGate struct {
	gpio   GPIO
	pin    Pin
	logger *zap.Logger
}

// NewBallGate 创建球门驱动
func NewBallGate(gpio GPIO, pin Pin) *BallGate {
	return &BallGate{
		gpio:   gpio,
		pin:    pin,
		logger: logger.GetModuleLogger("hardware"),
	}
}

// Setup 配置引脚，初始关门
func (g *BallGate) Setup() error {
	return g.gpio.ConfigureOutput(g.pin, false)
}

// Open 打开球门
func (g *BallGate) Open() error {
	if err := g.gpio.Set(g.pin, true); err != nil {
		return err
	}
	g.logger.Info("球门已打开")
	return nil
}

// Close 关闭球门
func (g *BallGate) Close() error {
	if err := g.gpio.Set(g.pin, false); err != nil {
		return err
	}
	g.logger.Info("球门已关闭")
	return nil
}

// IsOpen 返回当前门状态
func (g *BallGate) IsOpen() bool {
	level, err := g.gpio.Get(g.pin)
	if err != nil {
		return false
	}
	return level
}

// CounterOutput 机械计数器输出，上升沿走一格
type CounterOutput struct {
	mu     sync.Mutex
	gpio   GPIO
	pin    Pin
	hold   time.Duration
	name   string
	logger *zap.Logger
}

// NewCounterOutput 创建机械计数器驱动
func NewCounterOutput(gpio GPIO, pin Pin, hold time.Duration, name string) *CounterOutput {
	return &CounterOutput{
		gpio:   gpio,
		pin:    pin,
		hold:   hold,
		name:   name,
		logger: logger.GetModuleLogger("hardware"),
	}
}

// Setup 配置引脚，空闲为低
func (c *CounterOutput) Setup() error {
	return c.gpio.ConfigureOutput(c.pin, false)
}

// Tick 走一格：拉高保持后回落。互斥保证脉冲不重叠。
func (c *CounterOutput) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.gpio.Set(c.pin, true); err != nil {
		c.logger.Error("计数器脉冲失败", zap.String("counter", c.name), zap.Error(err))
		return
	}
	time.Sleep(c.hold)
	if err := c.gpio.Set(c.pin, false); err != nil {
		c.logger.Error("计数器脉冲失败", zap.String("counter", c.name), zap.Error(err))
		return
	}

	logger.LogPulse(c.name, 1, c.hold)
}
