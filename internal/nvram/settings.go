package nvram

import (
	"github.com/wfunc/ball-toss/internal/errors"
	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// NVRAM地址分配（跨固件版本保持稳定）
const (
	AddrInitialized     = 0   // 初始化哨兵字节
	AddrHighScore       = 128 // 最高分
	AddrTicketsPerScore = 129 // 每球出票数
	AddrPlaysPerCredit  = 130 // 每币局数
	AddrPlayTime        = 131 // 单局时长（秒）
	AddrAttractTime     = 132 // 待机演示间隔（秒）
)

// 哨兵值，非此值视为首次上电
const initializedSentinel = 1

// 出厂默认值
const (
	DefaultHighScore       = 15
	DefaultTicketsPerScore = 4
	DefaultPlaysPerCredit  = 1
	DefaultPlayTime        = 60
	DefaultAttractTime     = 240
)

// Settings 整机可编程参数（启动后只读，仅最高分会被回写）
type Settings struct {
	HighScore       byte // 历史最高分
	TicketsPerScore byte // 每球出票数
	PlaysPerCredit  byte // 每币局数
	PlayTime        byte // 单局时长（秒）
	AttractTime     byte // 待机演示间隔（秒）
}

// SettingsStore 参数存取器
type SettingsStore struct {
	store  Store
	logger *zap.Logger
}

// NewSettingsStore 创建参数存取器
func NewSettingsStore(store Store) *SettingsStore {
	return &SettingsStore{
		store:  store,
		logger: logger.GetModuleLogger("nvram"),
	}
}

// Load 加载全部参数；首次上电（哨兵未置位）时先写入出厂默认值。
// 读取失败不会阻塞状态机：记录日志后以默认值兜底。
func (s *SettingsStore) Load() (*Settings, error) {
	sentinel, err := s.store.ReadByte(AddrInitialized)
	if err != nil {
		s.logger.Error("读取初始化哨兵失败，按首次上电处理", zap.Error(err))
		sentinel = 0
	}

	if sentinel != initializedSentinel {
		if err := s.writeDefaults(); err != nil {
			return nil, err
		}
		s.logger.Info("NVRAM已初始化为出厂默认值")
	}

	settings := &Settings{
		HighScore:       s.readOrDefault(AddrHighScore, DefaultHighScore),
		TicketsPerScore: s.readOrDefault(AddrTicketsPerScore, DefaultTicketsPerScore),
		PlaysPerCredit:  s.readOrDefault(AddrPlaysPerCredit, DefaultPlaysPerCredit),
		PlayTime:        s.readOrDefault(AddrPlayTime, DefaultPlayTime),
		AttractTime:     s.readOrDefault(AddrAttractTime, DefaultAttractTime),
	}

	s.logger.Info("参数加载完成",
		zap.Uint8("high_score", settings.HighScore),
		zap.Uint8("tickets_per_score", settings.TicketsPerScore),
		zap.Uint8("plays_per_credit", settings.PlaysPerCredit),
		zap.Uint8("play_time", settings.PlayTime),
		zap.Uint8("attract_time", settings.AttractTime),
	)

	return settings, nil
}

// SaveHighScore 持久化新的最高分
func (s *SettingsStore) SaveHighScore(value byte) error {
	if err := s.store.WriteByte(AddrHighScore, value); err != nil {
		return errors.Wrap(err, errors.ErrNVRAMWrite, "保存最高分失败")
	}
	if err := s.store.Sync(); err != nil {
		return errors.Wrap(err, errors.ErrNVRAMWrite, "保存最高分失败")
	}

	s.logger.Info("最高分已保存", zap.Uint8("high_score", value))
	return nil
}

// writeDefaults 写入哨兵和出厂默认值
func (s *SettingsStore) writeDefaults() error {
	writes := []struct {
		addr  int
		value byte
	}{
		{AddrInitialized, initializedSentinel},
		{AddrHighScore, DefaultHighScore},
		{AddrTicketsPerScore, DefaultTicketsPerScore},
		{AddrPlaysPerCredit, DefaultPlaysPerCredit},
		{AddrPlayTime, DefaultPlayTime},
		{AddrAttractTime, DefaultAttractTime},
	}

	for _, w := range writes {
		if err := s.store.WriteByte(w.addr, w.value); err != nil {
			return errors.Wrapf(err, errors.ErrNVRAMWrite, "初始化地址 %d 失败", w.addr)
		}
	}

	return s.store.Sync()
}

// readOrDefault 读取单个参数，失败时返回默认值
func (s *SettingsStore) readOrDefault(addr int, fallback byte) byte {
	value, err := s.store.ReadByte(addr)
	if err != nil {
		s.logger.Error("参数读取失败，使用默认值",
			zap.Int("addr", addr),
			zap.Uint8("default", fallback),
			zap.Error(err))
		return fallback
	}
	return value
}
