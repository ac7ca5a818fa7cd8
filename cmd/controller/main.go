package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/ball-toss/internal/config"
	"github.com/wfunc/ball-toss/internal/console"
	"github.com/wfunc/ball-toss/internal/game"
	"github.com/wfunc/ball-toss/internal/hardware"
	"github.com/wfunc/ball-toss/internal/logger"
	"github.com/wfunc/ball-toss/internal/nvram"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "0.2.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Controller 整机控制器实例
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger

	gpio      hardware.GPIO
	store     *nvram.FileStore
	settings  *nvram.Settings
	console   *console.Console
	gate      *hardware.BallGate
	dispenser *hardware.Dispenser
	coin      *hardware.CoinWatcher
	opto      *hardware.OptoWatcher
	led       *hardware.StatusLED
	display   *hardware.DisplayDriver
	machine   *game.Machine

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	// 创建控制器实例
	controller := NewController(cfg)

	// 启动控制器
	if err := controller.Start(); err != nil {
		logger.Fatal("控制器启动失败", zap.Error(err))
	}

	// 等待退出信号
	controller.WaitForShutdown()

	// 优雅关闭
	controller.Shutdown()

	logger.Info("控制器已安全关闭")
}

// NewController 创建控制器实例
func NewController(cfg *config.Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 初始化硬件并启动状态机
func (c *Controller) Start() error {
	c.logger.Info("正在启动投球机控制器...",
		zap.String("version", Version),
		zap.Bool("mock_mode", c.cfg.Machine.MockMode))

	if err := c.setupGPIO(); err != nil {
		return err
	}
	if err := c.setupStorage(); err != nil {
		return err
	}
	if err := c.setupConsole(); err != nil {
		return err
	}
	if err := c.setupHardware(); err != nil {
		return err
	}
	if err := c.setupMachine(); err != nil {
		return err
	}

	// 上电报文
	c.console.Boot(versionString())
	c.console.StorageInitialized(c.settings.PlayTime)

	c.logger.Info("控制器启动成功",
		zap.Uint8("play_time", c.settings.PlayTime),
		zap.Uint8("high_score", c.settings.HighScore))
	return nil
}

// setupGPIO 选择GPIO驱动。板级代码在init里注册真实驱动，
// 无驱动或调试模式时使用内存GPIO。
func (c *Controller) setupGPIO() error {
	if c.cfg.Machine.MockMode {
		c.gpio = hardware.NewMemGPIO()
		c.logger.Info("调试模式：使用内存GPIO")
		return nil
	}

	if d := hardware.Driver(); d != nil {
		c.gpio = d
		return nil
	}

	c.logger.Warn("未注册板级GPIO驱动，回退到内存GPIO")
	c.gpio = hardware.NewMemGPIO()
	return nil
}

// setupStorage 打开NVRAM并加载整机参数
func (c *Controller) setupStorage() error {
	store, err := nvram.OpenFile(c.cfg.NVRAM.Path, c.cfg.NVRAM.Size)
	if err != nil {
		return err
	}
	c.store = store

	settings, err := nvram.NewSettingsStore(store).Load()
	if err != nil {
		return err
	}
	c.settings = settings
	return nil
}

// setupConsole 打开运维控制台
func (c *Controller) setupConsole() error {
	cons, err := console.FromConfig(&c.cfg.Console)
	if err != nil {
		return err
	}
	c.console = cons
	return nil
}

// setupHardware 初始化所有输入输出
func (c *Controller) setupHardware() error {
	pins := c.cfg.Machine.Pins
	gameCfg := c.cfg.Game

	// 输出
	c.gate = hardware.NewBallGate(c.gpio, hardware.Pin(pins.BallGate))
	if err := c.gate.Setup(); err != nil {
		return err
	}

	c.dispenser = hardware.NewDispenser(c.gpio,
		hardware.Pin(pins.TicketNotch), hardware.Pin(pins.TicketCounter),
		gameCfg.TicketPulseDelay)
	if err := c.dispenser.Setup(); err != nil {
		return err
	}

	creditCounter := hardware.NewCounterOutput(c.gpio,
		hardware.Pin(pins.CreditCounter), gameCfg.TicketPulseDelay, "credit_counter")
	if err := creditCounter.Setup(); err != nil {
		return err
	}

	c.led = hardware.NewStatusLED(c.gpio, hardware.Pin(pins.StatusLED))
	if err := c.led.Setup(); err != nil {
		return err
	}

	c.display = hardware.NewDisplayDriver(c.gpio,
		hardware.Pin(pins.DisplayEnable), hardware.Pin(pins.DisplayStrobe),
		hardware.Pin(pins.DisplaySData), hardware.Pin(pins.DisplayClock))
	if err := c.display.Setup(); err != nil {
		return err
	}

	// 输入
	c.coin = hardware.NewCoinWatcher(c.gpio, hardware.Pin(pins.Coin), gameCfg.CoinDelay)
	c.coin.SetCounter(creditCounter)
	if err := c.coin.Register(); err != nil {
		return err
	}

	c.opto = hardware.NewOptoWatcher(c.gpio,
		hardware.Pin(pins.UpperOpto), hardware.Pin(pins.LowerOpto))
	if err := c.opto.Register(); err != nil {
		return err
	}

	return hardware.SetupButtons(c.gpio,
		hardware.Pin(pins.Aux1), hardware.Pin(pins.Aux2), hardware.Pin(pins.Reset))
}

// setupMachine 组装状态机并接线输入回调
func (c *Controller) setupMachine() error {
	saver := nvram.NewSettingsStore(c.store)
	c.machine = game.NewMachine(c.cfg.Game, c.settings, saver, c.console, c.gate, c.dispenser)

	// 投币和进球事件汇入状态机
	c.coin.SetAcceptedCallback(c.machine.CoinInserted)
	c.opto.SetCrossedCallback(c.machine.BallScored)

	if err := c.machine.Start(); err != nil {
		return err
	}

	// 状态灯心跳与显示刷新
	go c.led.Run(c.ctx)
	go c.display.Run(c.ctx)

	return nil
}

// WaitForShutdown 等待退出信号
func (c *Controller) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	c.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭：停状态机、关门、落盘
func (c *Controller) Shutdown() {
	c.cancel()

	if c.machine != nil {
		c.machine.Stop()
	}
	if c.gate != nil {
		if err := c.gate.Close(); err != nil {
			c.logger.Error("关闭球门失败", zap.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.Sync(); err != nil {
			c.logger.Error("NVRAM落盘失败", zap.Error(err))
		}
		c.store.Close()
	}
}

// versionString 控制台上电版本行
func versionString() string {
	return fmt.Sprintf("V%s-%s", Version, BuildTime)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("ball-toss controller\n")
	fmt.Printf("  Version:    %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
	fmt.Printf("  Built At:   %s\n", time.Now().Format(time.RFC3339))
}
