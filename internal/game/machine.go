package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/ball-toss/internal/config"
	"github.com/wfunc/ball-toss/internal/console"
	"github.com/wfunc/ball-toss/internal/errors"
	"github.com/wfunc/ball-toss/internal/logger"
	"github.com/wfunc/ball-toss/internal/nvram"
	"go.uber.org/zap"
)

// Gate 球门控制接口
type Gate interface {
	Open() error
	Close() error
}

// Dispenser 出票接口，返回实际完成的张数
type Dispenser interface {
	Dispense(ctx context.Context, n int) (int, error)
}

// HighScoreSaver 最高分持久化接口
type HighScoreSaver interface {
	SaveHighScore(value byte) error
}

// Machine 整机游戏状态机。
// 所有计数器由本结构统一持有；状态只在状态机goroutine内改写，
// 投币和进球回调只通过原子字段与挂起标志汇入。
type Machine struct {
	cfg      config.GameConfig
	settings *nvram.Settings
	saver    HighScoreSaver
	console  *console.Console
	gate     Gate
	disp     Dispenser
	logger   *zap.Logger

	// 状态机goroutine拥有的字段，mu只用于对外快照
	mu            sync.RWMutex
	state         State
	sessionID     string
	delayNextGame bool
	highScore     int
	lastScore     int
	curTickets    int
	running       bool

	// 边沿/定时上下文共享的字段
	credits      atomic.Int32 // 投币回调加，开局减
	score        atomic.Int32 // 进球回调加，结算清零
	remainingSec atomic.Int32 // 秒针定时器减，开局赋值
	coinPending  atomic.Bool  // 投币挂起标志，主循环消费后清除
	gameTick     atomic.Bool  // 秒针挂起标志，主循环消费后清除
	doAttract    atomic.Bool  // 待机演示挂起标志
	tickRunning  atomic.Bool

	// 秒针定时器停止通道，仅状态机goroutine访问
	tickStop chan struct{}

	// 协作方回调，必须在Start之前设置
	onStateChange  func(from, to State)
	onAttractCycle func() // 待机灯光音效
	onEndNear      func() // 最后倒计时灯光音效

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMachine 创建状态机，初始状态为待机
func NewMachine(cfg config.GameConfig, settings *nvram.Settings, saver HighScoreSaver,
	cons *console.Console, gate Gate, disp Dispenser) *Machine {
	return &Machine{
		cfg:       cfg,
		settings:  settings,
		saver:     saver,
		console:   cons,
		gate:      gate,
		disp:      disp,
		logger:    logger.GetModuleLogger("machine"),
		state:     StateAttract,
		highScore: int(settings.HighScore),
	}
}

// OnStateChange 设置状态变更回调
func (m *Machine) OnStateChange(fn func(from, to State)) {
	m.onStateChange = fn
}

// OnAttractCycle 设置待机演示回调（灯光音效协作方）
func (m *Machine) OnAttractCycle(fn func()) {
	m.onAttractCycle = fn
}

// OnEndNear 设置最后倒计时回调（灯光音效协作方）
func (m *Machine) OnEndNear(fn func()) {
	m.onEndNear = fn
}

// Start 启动状态机goroutine和待机演示定时器
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New(errors.ErrGameAlreadyStarted)
	}
	m.running = true
	m.mu.Unlock()

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})

	go m.attractLoop()
	go m.run()

	m.logger.Info("状态机已启动",
		zap.Uint8("play_time", m.settings.PlayTime),
		zap.Uint8("tickets_per_score", m.settings.TicketsPerScore),
		zap.Uint8("attract_time", m.settings.AttractTime))
	return nil
}

// Stop 停止状态机并等待goroutine退出
func (m *Machine) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	<-m.done
	m.logger.Info("状态机已停止")
}

// CoinInserted 投币入账，边沿上下文调用。
// 每枚硬币按playsPerCredit发放游戏次数，并设置挂起标志等待主循环整合。
func (m *Machine) CoinInserted() {
	grant := int32(m.settings.PlaysPerCredit)
	if grant < 1 {
		grant = 1
	}
	m.credits.Add(grant)
	m.coinPending.Store(true)
}

// BallScored 进球计分，边沿上下文调用。
// 仅在进行中和最后倒计时阶段计分，其余状态为空操作。
func (m *Machine) BallScored() {
	if m.State().Scoring() {
		m.score.Add(1)
	}
}

// State 返回当前状态
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Credits 返回当前可用投币数
func (m *Machine) Credits() int {
	return int(m.credits.Load())
}

// TickRunning 返回游戏秒针是否在运行
func (m *Machine) TickRunning() bool {
	return m.tickRunning.Load()
}

// Snapshot 返回计数器快照
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:        m.state,
		SessionID:    m.sessionID,
		Credits:      int(m.credits.Load()),
		Score:        int(m.score.Load()),
		LastScore:    m.lastScore,
		Tickets:      m.curTickets,
		RemainingSec: int(m.remainingSec.Load()),
		HighScore:    m.highScore,
	}
}

// run 状态机主循环。对应固件里的gameThread加主loop：
// 每轮先整合投币和秒针标志，再执行当前状态的一步。
func (m *Machine) run() {
	defer close(m.done)
	defer m.stopTick()

	poll := m.cfg.TickInterval / 50
	if poll < time.Millisecond {
		poll = time.Millisecond
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.integrateCoin()
		m.drainTick()

		switch m.State() {
		case StateAttract:
			m.stepAttract()
		case StateStart:
			m.stepStart()
		case StateRun:
			m.stepRun()
		case StateLast10:
			m.stepLast10()
		case StateEnd:
			m.stepEnd()
		}

		if !m.sleep(poll) {
			return
		}
	}
}

// integrateCoin 消费投币挂起标志，把异步投币事件汇入状态机
func (m *Machine) integrateCoin() {
	if !m.coinPending.CompareAndSwap(true, false) {
		return
	}

	credits := int(m.credits.Load())
	m.console.CreditAccepted(credits)
	m.logger.Info("收到投币", zap.Int("credits", credits))

	if credits < 1 {
		return
	}

	if m.State() == StateAttract {
		m.transition(StateStart)
	} else {
		m.setDelayNextGame(true)
		m.console.DelayingNextGame(m.cfg.QueueDelaySec)
	}
}

// drainTick 消费秒针挂起标志
func (m *Machine) drainTick() {
	if m.gameTick.CompareAndSwap(true, false) {
		m.console.GameTimeLeft(int(m.remainingSec.Load()))
	}
}

// stepAttract 待机：演示触发和排队开局
func (m *Machine) stepAttract() {
	if m.doAttract.CompareAndSwap(true, false) {
		m.logger.Debug("执行待机演示")
		if m.onAttractCycle != nil {
			m.onAttractCycle()
		}
	}

	if !m.delayed() {
		return
	}

	// 上一局打完还有余币，倒计时后自动开下一局
	m.console.CountdownBegin(m.cfg.QueueDelaySec)
	for i := 0; i < m.cfg.QueueDelaySec; i++ {
		m.console.CountdownDot()
		if !m.sleep(m.cfg.TickInterval) {
			return
		}
	}
	m.console.CountdownEnd()

	m.setDelayNextGame(false)
	m.transition(StateStart)
}

// stepStart 开局：扣币、准备、开门、起秒针
func (m *Machine) stepStart() {
	if m.credits.Load() < 1 {
		// 不应到达：进入开局的两条路径都要求有币
		m.logger.Error("开局时无可用投币，回到待机")
		m.transition(StateAttract)
		return
	}

	credits := int(m.credits.Add(-1))

	m.mu.Lock()
	m.sessionID = uuid.NewString()
	m.delayNextGame = credits >= 1
	session := m.sessionID
	m.mu.Unlock()

	m.console.GameStarted(credits)
	logger.LogGameEvent("game_start", session, map[string]interface{}{
		"credits_left": credits,
		"play_time":    m.settings.PlayTime,
	})

	// 等玩家就位
	if !m.sleep(m.cfg.GetReadyDelay) {
		return
	}

	if err := m.gate.Open(); err != nil {
		m.logger.Error("球门打开失败", zap.Error(err))
	}

	m.remainingSec.Store(int32(m.settings.PlayTime))
	m.startTick()
	m.transition(StateRun)
}

// stepRun 进行中：进球由BallScored异步计入，只监视剩余时间
func (m *Machine) stepRun() {
	if int(m.remainingSec.Load()) <= m.cfg.Last10Threshold {
		m.transition(StateLast10)
	}
}

// stepLast10 最后倒计时：计分规则不变，时间耗尽进入结算
func (m *Machine) stepLast10() {
	if m.remainingSec.Load() <= 0 {
		m.transition(StateEnd)
	}
}

// stepEnd 结算：停秒针、关门、记最高分、出票、回到待机
func (m *Machine) stepEnd() {
	m.stopTick()

	if err := m.gate.Close(); err != nil {
		m.logger.Error("球门关闭失败", zap.Error(err))
	}

	score := int(m.score.Load())

	m.mu.RLock()
	highScore := m.highScore
	session := m.sessionID
	m.mu.RUnlock()

	if score > highScore {
		m.console.BeatHighScore()
		m.logger.Info("打破最高分",
			zap.Int("score", score),
			zap.Int("previous", highScore),
			zap.String("session_id", session))

		m.mu.Lock()
		m.highScore = score
		m.mu.Unlock()

		// 持久化失败只记日志，不阻塞状态机
		persisted := score
		if persisted > 255 {
			persisted = 255
		}
		if err := m.saver.SaveHighScore(byte(persisted)); err != nil {
			m.logger.Error("最高分保存失败", zap.Error(err))
		}
	}

	tickets := score * int(m.settings.TicketsPerScore)
	m.mu.Lock()
	m.curTickets = tickets
	m.mu.Unlock()

	// 同步出票，状态机在此阻塞直到出完
	dispensed, err := m.disp.Dispense(m.ctx, tickets)
	if err != nil {
		m.logger.Warn("出票未完成",
			zap.Int("dispensed", dispensed),
			zap.Int("requested", tickets),
			zap.Error(err))
	}

	m.mu.Lock()
	m.lastScore = score
	m.mu.Unlock()
	m.score.Store(0)

	m.console.GameEnded(score, tickets)
	logger.LogGameEvent("game_end", session, map[string]interface{}{
		"score":   score,
		"tickets": tickets,
	})

	// 出票期间的投币在回到待机前整合，走排队倒计时而不是立即开局
	m.integrateCoin()

	m.transition(StateAttract)
}

// transition 状态转换，记录日志并通知协作方
func (m *Machine) transition(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	session := m.sessionID
	m.mu.Unlock()

	m.logger.Info("状态转换",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("session_id", session))

	if to == StateLast10 && m.onEndNear != nil {
		m.onEndNear()
	}
	if m.onStateChange != nil {
		m.onStateChange(from, to)
	}
}

// startTick 启动游戏秒针。定时器回调只减秒数和置挂起标志。
func (m *Machine) startTick() {
	stop := make(chan struct{})
	m.tickStop = stop
	m.tickRunning.Store(true)

	go func() {
		ticker := time.NewTicker(m.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.remainingSec.Add(-1)
				m.gameTick.Store(true)
			case <-stop:
				return
			}
		}
	}()
}

// stopTick 停止游戏秒针
func (m *Machine) stopTick() {
	if m.tickStop != nil {
		close(m.tickStop)
		m.tickStop = nil
	}
	m.tickRunning.Store(false)
}

// attractLoop 自由运行的待机演示定时器，整机生命周期有效。
// 仅在待机状态置位演示标志，其余状态的触发直接丢弃。
func (m *Machine) attractLoop() {
	period := time.Duration(m.settings.AttractTime) * m.cfg.TickInterval
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.State() == StateAttract {
				m.doAttract.Store(true)
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// delayed 读取排队标志
func (m *Machine) delayed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delayNextGame
}

// setDelayNextGame 设置排队标志
func (m *Machine) setDelayNextGame(v bool) {
	m.mu.Lock()
	m.delayNextGame = v
	m.mu.Unlock()
}

// sleep 协作式睡眠，停机时返回false
func (m *Machine) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-m.ctx.Done():
		return false
	}
}
