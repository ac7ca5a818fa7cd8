package hardware

import (
	"context"
	"time"

	"github.com/wfunc/ball-toss/internal/errors"
	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// Dispenser 彩票出票驱动。
// 出票线低电平有效，每张票一个低脉冲，同相位在机械计数器上走一格。
type Dispenser struct {
	gpio       GPIO
	notchPin   Pin // 出票线（低电平有效，空闲为高）
	counterPin Pin // 彩票机械计数器（高脉冲）
	hold       time.Duration
	logger     *zap.Logger
}

// NewDispenser 创建出票驱动
func NewDispenser(gpio GPIO, notchPin, counterPin Pin, hold time.Duration) *Dispenser {
	return &Dispenser{
		gpio:       gpio,
		notchPin:   notchPin,
		counterPin: counterPin,
		hold:       hold,
		logger:     logger.GetModuleLogger("hardware"),
	}
}

// Setup 配置引脚：出票线空闲为高，计数器空闲为低
func (d *Dispenser) Setup() error {
	if err := d.gpio.ConfigureOutput(d.notchPin, true); err != nil {
		return err
	}
	return d.gpio.ConfigureOutput(d.counterPin, false)
}

// Dispense 出n张票，阻塞约 2*n*hold。
// 只允许状态机线程在结算阶段调用。n<=0时直接返回。
// 返回实际完成的脉冲数；ctx取消时中途停止。
func (d *Dispenser) Dispense(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	d.logger.Info("开始出票", zap.Int("tickets", n))

	for i := 0; i < n; i++ {
		if err := d.pulse(ctx); err != nil {
			d.logger.Warn("出票中断",
				zap.Int("dispensed", i),
				zap.Int("requested", n),
				zap.Error(err))
			return i, err
		}
	}

	logger.LogPulse("ticket_notch", n, d.hold)
	d.logger.Info("出票完成", zap.Int("tickets", n))
	return n, nil
}

// pulse 单张票的完整脉冲对
func (d *Dispenser) pulse(ctx context.Context) error {
	if err := d.gpio.Set(d.notchPin, false); err != nil {
		return errors.Wrap(err, errors.ErrDispenseFailed)
	}
	if err := d.gpio.Set(d.counterPin, true); err != nil {
		return errors.Wrap(err, errors.ErrDispenseFailed)
	}
	if err := sleepCtx(ctx, d.hold); err != nil {
		// 恢复空闲电平再退出
		d.gpio.Set(d.notchPin, true)
		d.gpio.Set(d.counterPin, false)
		return err
	}

	if err := d.gpio.Set(d.notchPin, true); err != nil {
		return errors.Wrap(err, errors.ErrDispenseFailed)
	}
	if err := d.gpio.Set(d.counterPin, false); err != nil {
		return errors.Wrap(err, errors.ErrDispenseFailed)
	}
	return sleepCtx(ctx, d.hold)
}

// sleepCtx 可取消的睡眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrCanceled)
	}
}
