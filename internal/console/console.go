package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tarm/serial"
	"github.com/wfunc/ball-toss/internal/config"
	"github.com/wfunc/ball-toss/internal/errors"
	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// Console 运维控制台，维修串口上的文本流。
// 消息格式是维修人员长期依赖的约定，改动需要同步维修手册。
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
}

// New 基于任意Writer创建控制台
func New(w io.Writer) *Console {
	return &Console{
		w:      w,
		logger: logger.GetModuleLogger("console"),
	}
}

// FromConfig 根据配置创建控制台（stdout或维修串口）
func FromConfig(cfg *config.ConsoleConfig) (*Console, error) {
	if cfg.Output != "serial" {
		return New(os.Stdout), nil
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSerialPortOpen, "端口: %s", cfg.Port)
	}

	c := New(port)
	c.logger.Info("维修串口已打开",
		zap.String("port", cfg.Port),
		zap.Int("baud", cfg.BaudRate))
	return c, nil
}

// printf 串行化的格式化输出
func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, format, args...); err != nil {
		c.logger.Error("控制台写入失败", zap.Error(err))
	}
}

// Boot 上电版本行
func (c *Console) Boot(version string) {
	c.printf("%s\r\n", version)
}

// StorageInitialized 上电参数加载完成
func (c *Console) StorageInitialized(playTime byte) {
	c.printf("EEPROM Initialized\r\n")
	c.printf("Play Time: %d\r\n", playTime)
}

// CreditAccepted 投币入账
func (c *Console) CreditAccepted(balance int) {
	c.printf("Got Credit, new balance: %d\r\n", balance)
}

// DelayingNextGame 下一局进入排队
func (c *Console) DelayingNextGame(delaySec int) {
	c.printf("Delaying next game by %dsec\r\n", delaySec)
}

// CountdownBegin 排队倒计时开始
func (c *Console) CountdownBegin(delaySec int) {
	c.printf("Starting next game in %d seconds", delaySec)
}

// CountdownDot 倒计时走一秒
func (c *Console) CountdownDot() {
	c.printf(".")
}

// CountdownEnd 倒计时结束
func (c *Console) CountdownEnd() {
	c.printf("\r\n")
}

// GameStarted 开局
func (c *Console) GameStarted(balance int) {
	c.printf("Game started, new balance: %d\r\n", balance)
}

// GameTimeLeft 游戏秒针
func (c *Console) GameTimeLeft(sec int) {
	c.printf("Game time left: %d\r\n", sec)
}

// BeatHighScore 打破最高分
func (c *Console) BeatHighScore() {
	c.printf("Beat high score\r\n")
}

// GameEnded 结算
func (c *Console) GameEnded(finalScore, tickets int) {
	c.printf("Game ended, Final score: %d, Tickets earned: %d\r\n", finalScore, tickets)
}
