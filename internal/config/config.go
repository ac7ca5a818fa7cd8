package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Machine MachineConfig `mapstructure:"machine"`
	Game    GameConfig    `mapstructure:"game"`
	NVRAM   NVRAMConfig   `mapstructure:"nvram"`
	Console ConsoleConfig `mapstructure:"console"`
	Log     LogConfig     `mapstructure:"log"`
}

// MachineConfig 整机硬件配置（引脚分配）
type MachineConfig struct {
	MockMode bool       `mapstructure:"mock_mode"` // 调试模式（使用内存GPIO）
	Pins     PinsConfig `mapstructure:"pins"`
}

// PinsConfig 引脚分配表
type PinsConfig struct {
	// 输入
	UpperOpto int `mapstructure:"upper_opto"` // 上光电传感器
	LowerOpto int `mapstructure:"lower_opto"` // 下光电传感器
	Coin      int `mapstructure:"coin"`       // 投币信号（上升沿）
	Aux1      int `mapstructure:"aux1"`       // 编程按钮AUX1
	Aux2      int `mapstructure:"aux2"`       // 编程按钮AUX2
	Reset     int `mapstructure:"reset"`      // 编程按钮RESET

	// 输出
	TicketCounter int `mapstructure:"ticket_counter"` // 彩票机械计数器
	CreditCounter int `mapstructure:"credit_counter"` // 投币机械计数器
	TicketNotch   int `mapstructure:"ticket_notch"`   // 彩票出票线（低电平有效）
	BallGate      int `mapstructure:"ball_gate"`      // 球门继电器
	StatusLED     int `mapstructure:"status_led"`     // 状态灯

	// 显示驱动
	DisplayEnable int `mapstructure:"display_enable"` // 显示使能（低电平有效）
	DisplayStrobe int `mapstructure:"display_strobe"` // 显示锁存
	DisplaySData  int `mapstructure:"display_sdata"`  // 显示串行数据
	DisplayClock  int `mapstructure:"display_clock"`  // 显示时钟
}

// GameConfig 游戏时序配置
type GameConfig struct {
	TickInterval     time.Duration `mapstructure:"tick_interval"`      // 游戏秒针周期
	GetReadyDelay    time.Duration `mapstructure:"get_ready_delay"`    // 开球前等待
	CoinDelay        time.Duration `mapstructure:"coin_delay"`         // 投币去抖窗口
	TicketPulseDelay time.Duration `mapstructure:"ticket_pulse_delay"` // 出票脉冲保持时间
	QueueDelaySec    int           `mapstructure:"queue_delay_sec"`    // 连续游戏排队等待秒数
	Last10Threshold  int           `mapstructure:"last10_threshold"`   // 进入最后倒计时的剩余秒数
}

// NVRAMConfig NVRAM存储配置
type NVRAMConfig struct {
	Path string `mapstructure:"path"` // 存储文件路径
	Size int    `mapstructure:"size"` // 存储大小（字节）
}

// ConsoleConfig 运维串口控制台配置
type ConsoleConfig struct {
	Output       string        `mapstructure:"output"` // stdout 或 serial
	Port         string        `mapstructure:"port"`
	BaudRate     int           `mapstructure:"baud_rate"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("BALL_TOSS")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			return
		}
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 硬件默认配置（沿用控制板丝印的引脚编号）
	v.SetDefault("machine.mock_mode", false)
	v.SetDefault("machine.pins.upper_opto", 2)
	v.SetDefault("machine.pins.lower_opto", 3)
	v.SetDefault("machine.pins.coin", 4)
	v.SetDefault("machine.pins.aux1", 5)
	v.SetDefault("machine.pins.aux2", 6)
	v.SetDefault("machine.pins.reset", 7)
	v.SetDefault("machine.pins.ticket_counter", 14)
	v.SetDefault("machine.pins.credit_counter", 15)
	v.SetDefault("machine.pins.ticket_notch", 16)
	v.SetDefault("machine.pins.ball_gate", 17)
	v.SetDefault("machine.pins.status_led", 13)
	v.SetDefault("machine.pins.display_enable", 23)
	v.SetDefault("machine.pins.display_strobe", 22)
	v.SetDefault("machine.pins.display_sdata", 21)
	v.SetDefault("machine.pins.display_clock", 20)

	// 游戏时序默认配置
	v.SetDefault("game.tick_interval", "1s")
	v.SetDefault("game.get_ready_delay", "2.5s")
	v.SetDefault("game.coin_delay", "2.5s")
	v.SetDefault("game.ticket_pulse_delay", "20ms")
	v.SetDefault("game.queue_delay_sec", 10)
	v.SetDefault("game.last10_threshold", 10)

	// NVRAM默认配置
	v.SetDefault("nvram.path", "./data/nvram.bin")
	v.SetDefault("nvram.size", 1080)

	// 控制台默认配置
	v.SetDefault("console.output", "stdout")
	v.SetDefault("console.port", "/dev/ttyS0")
	v.SetDefault("console.baud_rate", 115200)
	v.SetDefault("console.read_timeout", "100ms")
	v.SetDefault("console.write_timeout", "100ms")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "ball-toss.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}

// Set 动态设置配置值
func Set(key string, value interface{}) {
	v.Set(key, value)
}
