package hardware

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// CoinWatcher 投币信号监视器。
// 在coinDelay去抖窗口内的重复边沿会被静默丢弃，防止机械抖动重复记币。
type CoinWatcher struct {
	gpio      GPIO
	pin       Pin
	counter   *CounterOutput // 投币机械计数器，可为nil
	coinDelay time.Duration
	logger    *zap.Logger

	// 上次接受投币的单调时刻（纳秒），仅边沿回调写入
	lastAccept atomic.Int64
	accepted   atomic.Int64 // 累计接受的投币数
	dropped    atomic.Int64 // 累计丢弃的边沿数

	mu       sync.RWMutex
	onAccept func()

	// 可注入的时钟源，测试用
	now func() time.Time
}

// NewCoinWatcher 创建投币监视器
func NewCoinWatcher(gpio GPIO, pin Pin, coinDelay time.Duration) *CoinWatcher {
	return &CoinWatcher{
		gpio:      gpio,
		pin:       pin,
		coinDelay: coinDelay,
		logger:    logger.GetModuleLogger("hardware"),
		now:       time.Now,
	}
}

// SetCounter 设置投币机械计数器输出
func (w *CoinWatcher) SetCounter(counter *CounterOutput) {
	w.counter = counter
}

// SetAcceptedCallback 设置投币接受回调，回调在边沿上下文执行，不得阻塞
func (w *CoinWatcher) SetAcceptedCallback(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAccept = fn
}

// Register 配置引脚并注册边沿回调
func (w *CoinWatcher) Register() error {
	if err := w.gpio.ConfigureInputPullUp(w.pin); err != nil {
		return err
	}
	return w.gpio.OnRisingEdge(w.pin, w.handleEdge)
}

// handleEdge 投币上升沿处理，等价于固件的投币中断服务程序
func (w *CoinWatcher) handleEdge() {
	now := w.now().UnixNano()
	last := w.lastAccept.Load()

	// 去抖窗口内的边沿静默丢弃
	if last != 0 && time.Duration(now-last) <= w.coinDelay {
		w.dropped.Add(1)
		w.logger.Debug("投币边沿落在去抖窗口内，已丢弃",
			zap.Duration("since_last", time.Duration(now-last)),
			zap.Duration("coin_delay", w.coinDelay))
		return
	}

	w.lastAccept.Store(now)
	w.accepted.Add(1)

	// 机械计数器走一格，不在边沿上下文里阻塞
	if w.counter != nil {
		go w.counter.Tick()
	}

	w.mu.RLock()
	fn := w.onAccept
	w.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Accepted 返回累计接受的投币数
func (w *CoinWatcher) Accepted() int64 {
	return w.accepted.Load()
}

// Dropped 返回累计丢弃的边沿数
func (w *CoinWatcher) Dropped() int64 {
	return w.dropped.Load()
}

// OptoWatcher 进球光电传感器监视器。
// 上下两路传感器横跨同一球道平面，任一路的上升沿都代表一次过球。
type OptoWatcher struct {
	gpio     GPIO
	upperPin Pin
	lowerPin Pin
	logger   *zap.Logger

	crossings atomic.Int64

	mu      sync.RWMutex
	onCross func()
}

// NewOptoWatcher 创建光电监视器
func NewOptoWatcher(gpio GPIO, upperPin, lowerPin Pin) *OptoWatcher {
	return &OptoWatcher{
		gpio:     gpio,
		upperPin: upperPin,
		lowerPin: lowerPin,
		logger:   logger.GetModuleLogger("hardware"),
	}
}

// SetCrossedCallback 设置过球回调，回调在边沿上下文执行，不得阻塞
func (w *OptoWatcher) SetCrossedCallback(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onCross = fn
}

// Register 配置引脚并注册边沿回调
func (w *OptoWatcher) Register() error {
	if err := w.gpio.ConfigureInput(w.upperPin); err != nil {
		return err
	}
	if err := w.gpio.ConfigureInput(w.lowerPin); err != nil {
		return err
	}
	if err := w.gpio.OnRisingEdge(w.upperPin, w.handleEdge); err != nil {
		return err
	}
	return w.gpio.OnRisingEdge(w.lowerPin, w.handleEdge)
}

// handleEdge 过球上升沿处理
func (w *OptoWatcher) handleEdge() {
	w.crossings.Add(1)

	w.mu.RLock()
	fn := w.onCross
	w.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Crossings 返回累计过球次数
func (w *OptoWatcher) Crossings() int64 {
	return w.crossings.Load()
}

// SetupButtons 配置AUX1/AUX2/RESET编程按钮为上拉输入。
// 按钮的处理逻辑属于运维控制台协作方，这里只负责引脚初始化。
func SetupButtons(gpio GPIO, aux1, aux2, reset Pin) error {
	for _, pin := range []Pin{aux1, aux2, reset} {
		if err := gpio.ConfigureInputPullUp(pin); err != nil {
			return err
		}
	}
	return nil
}
