package hardware

import (
	"context"
	"time"

	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// 状态灯节奏：两短闪加一长停
const (
	statusBlinkOn    = 60 * time.Millisecond
	statusBlinkPause = 1 * time.Second
)

// 显示刷新：空闲段码持续推送
const (
	displayIdlePattern = byte(0b11111100)
	displayRefresh     = 2 * time.Millisecond
)

// StatusLED 状态灯驱动
type StatusLED struct {
	gpio GPIO
	pin  Pin
}

// NewStatusLED 创建状态灯驱动
func NewStatusLED(gpio GPIO, pin Pin) *StatusLED {
	return &StatusLED{gpio: gpio, pin: pin}
}

// Setup 配置引脚，上电先点亮表示主程序已接管
func (s *StatusLED) Setup() error {
	return s.gpio.ConfigureOutput(s.pin, true)
}

// Run 心跳闪烁循环，ctx取消时熄灭退出
func (s *StatusLED) Run(ctx context.Context) {
	s.gpio.Set(s.pin, false)
	for {
		for i := 0; i < 2; i++ {
			s.gpio.Set(s.pin, true)
			if sleepCtx(ctx, statusBlinkOn) != nil {
				s.gpio.Set(s.pin, false)
				return
			}
			s.gpio.Set(s.pin, false)
			if sleepCtx(ctx, statusBlinkOn) != nil {
				return
			}
		}
		if sleepCtx(ctx, statusBlinkPause) != nil {
			return
		}
	}
}

// DisplayDriver 时间/分数显示驱动。
// 两片级联的八位数码管驱动芯片，使能低有效，数据低位在前。
// 段码的渲染内容由显示协作方决定，这里只负责线级时序。
type DisplayDriver struct {
	gpio      GPIO
	enablePin Pin
	strobePin Pin
	sdataPin  Pin
	clockPin  Pin
	logger    *zap.Logger
}

// NewDisplayDriver 创建显示驱动
func NewDisplayDriver(gpio GPIO, enablePin, strobePin, sdataPin, clockPin Pin) *DisplayDriver {
	return &DisplayDriver{
		gpio:      gpio,
		enablePin: enablePin,
		strobePin: strobePin,
		sdataPin:  sdataPin,
		clockPin:  clockPin,
		logger:    logger.GetModuleLogger("hardware"),
	}
}

// Setup 配置引脚：使能拉低，时钟和锁存空闲为低
func (d *DisplayDriver) Setup() error {
	if err := d.gpio.ConfigureOutput(d.enablePin, false); err != nil {
		return err
	}
	if err := d.gpio.ConfigureOutput(d.strobePin, false); err != nil {
		return err
	}
	if err := d.gpio.ConfigureOutput(d.sdataPin, false); err != nil {
		return err
	}
	if err := d.gpio.ConfigureOutput(d.clockPin, false); err != nil {
		return err
	}

	d.logger.Info("显示驱动已初始化")
	return nil
}

// Run 刷新循环，持续推送空闲段码，ctx取消时退出
func (d *DisplayDriver) Run(ctx context.Context) {
	for {
		if err := d.Push(displayIdlePattern); err != nil {
			d.logger.Error("刷新显示失败", zap.Error(err))
		}
		if sleepCtx(ctx, displayRefresh) != nil {
			return
		}
	}
}

// Push 推送一个字节到移位寄存器并锁存，低位在前
func (d *DisplayDriver) Push(data byte) error {
	if err := d.gpio.Set(d.strobePin, true); err != nil {
		return err
	}

	for bit := 0; bit < 8; bit++ {
		level := data&(1<<bit) != 0
		if err := d.gpio.Set(d.sdataPin, level); err != nil {
			return err
		}
		if err := d.gpio.Set(d.clockPin, true); err != nil {
			return err
		}
		if err := d.gpio.Set(d.clockPin, false); err != nil {
			return err
		}
	}

	return d.gpio.Set(d.strobePin, false)
}
