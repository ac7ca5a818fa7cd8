package hardware

import (
	"sync"

	"github.com/wfunc/ball-toss/internal/errors"
)

// Pin GPIO引脚编号
type Pin int

// PinMode 引脚模式
type PinMode int

const (
	ModeUnset PinMode = iota
	ModeInput
	ModeInputPullUp
	ModeOutput
)

// GPIO 抽象GPIO驱动接口，具体板级实现负责真实的电平控制
type GPIO interface {
	// ConfigureInput 配置为数字输入
	ConfigureInput(pin Pin) error
	// ConfigureInputPullUp 配置为带上拉的数字输入
	ConfigureInputPullUp(pin Pin) error
	// ConfigureOutput 配置为数字输出并设置初始电平
	ConfigureOutput(pin Pin, initial bool) error
	// Set 设置输出电平（true为高）
	Set(pin Pin, high bool) error
	// Get 读取当前电平
	Get(pin Pin) (bool, error)
	// OnRisingEdge 注册上升沿回调，回调在中断上下文执行，不得阻塞
	OnRisingEdge(pin Pin, fn func()) error
}

var (
	driverMu sync.RWMutex
	driver   GPIO
)

// SetDriver 由板级代码在启动时注册具体驱动
func SetDriver(d GPIO) {
	driverMu.Lock()
	defer driverMu.Unlock()
	driver = d
}

// Driver 返回已注册的驱动，未注册时返回nil
func Driver() GPIO {
	driverMu.RLock()
	defer driverMu.RUnlock()
	return driver
}

// pinState 单个引脚的内存状态
type pinState struct {
	mode      PinMode
	level     bool
	callbacks []func()
	history   []bool // 输出电平写入历史
}

// MemGPIO 内存GPIO实现（调试模式与测试使用）
type MemGPIO struct {
	mu   sync.Mutex
	pins map[Pin]*pinState
}

// NewMemGPIO 创建内存GPIO
func NewMemGPIO() *MemGPIO {
	return &MemGPIO{pins: make(map[Pin]*pinState)}
}

func (g *MemGPIO) pin(p Pin) *pinState {
	if ps, ok := g.pins[p]; ok {
		return ps
	}
	ps := &pinState{}
	g.pins[p] = ps
	return ps
}

// ConfigureInput 配置为数字输入
func (g *MemGPIO) ConfigureInput(pin Pin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pin(pin).mode = ModeInput
	return nil
}

// ConfigureInputPullUp 配置为带上拉的数字输入
func (g *MemGPIO) ConfigureInputPullUp(pin Pin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ps := g.pin(pin)
	ps.mode = ModeInputPullUp
	ps.level = true // 上拉空闲为高
	return nil
}

// ConfigureOutput 配置为数字输出并设置初始电平
func (g *MemGPIO) ConfigureOutput(pin Pin, initial bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ps := g.pin(pin)
	ps.mode = ModeOutput
	ps.level = initial
	ps.history = append(ps.history, initial)
	return nil
}

// Set 设置输出电平
func (g *MemGPIO) Set(pin Pin, high bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ps := g.pin(pin)
	if ps.mode != ModeOutput {
		return errors.Newf(errors.ErrPinWrite, "引脚 %d 不是输出模式", pin)
	}
	ps.level = high
	ps.history = append(ps.history, high)
	return nil
}

// Get 读取当前电平
func (g *MemGPIO) Get(pin Pin) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pin(pin).level, nil
}

// OnRisingEdge 注册上升沿回调
func (g *MemGPIO) OnRisingEdge(pin Pin, fn func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ps := g.pin(pin)
	ps.callbacks = append(ps.callbacks, fn)
	return nil
}

// Inject 模拟外部电平变化，低到高跳变触发上升沿回调。
// 回调在调用方的goroutine同步执行，等价于中断上下文。
func (g *MemGPIO) Inject(pin Pin, high bool) {
	g.mu.Lock()
	ps := g.pin(pin)
	rising := high && !ps.level
	ps.level = high
	callbacks := ps.callbacks
	g.mu.Unlock()

	if rising {
		for _, fn := range callbacks {
			fn()
		}
	}
}

// Pulse 模拟一个完整的高脉冲（上升沿+回落）
func (g *MemGPIO) Pulse(pin Pin) {
	g.Inject(pin, true)
	g.Inject(pin, false)
}

// WriteHistory 返回某引脚的输出写入历史（测试用）
func (g *MemGPIO) WriteHistory(pin Pin) []bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := g.pin(pin).history
	out := make([]bool, len(history))
	copy(out, history)
	return out
}

// FallingWrites 统计某引脚高到低的写入次数（测试用，
// 在低有效脉冲线上等于脉冲个数）
func (g *MemGPIO) FallingWrites(pin Pin) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	prev := true
	for i, level := range g.pin(pin).history {
		if i == 0 {
			prev = level
			continue
		}
		if prev && !level {
			count++
		}
		prev = level
	}
	return count
}

// RisingWrites 统计某引脚被写为高电平的次数（测试用）
func (g *MemGPIO) RisingWrites(pin Pin) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	prev := false
	for i, level := range g.pin(pin).history {
		if i == 0 {
			prev = level
			continue
		}
		if !prev && level {
			count++
		}
		prev = level
	}
	return count
}
