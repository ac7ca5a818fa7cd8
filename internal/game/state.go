package game

// State 游戏生命周期状态
type State string

const (
	StateAttract State = "attract" // 待机揽客
	StateStart   State = "start"   // 开局准备
	StateRun     State = "run"     // 游戏进行中
	StateLast10  State = "last10"  // 最后倒计时
	StateEnd     State = "end"     // 结算
)

// Scoring 返回该状态下进球是否计分
func (s State) Scoring() bool {
	return s == StateRun || s == StateLast10
}

// Snapshot 状态机计数器快照，供显示和运维协作方读取
type Snapshot struct {
	State        State  `json:"state"`
	SessionID    string `json:"session_id"`
	Credits      int    `json:"credits"`
	Score        int    `json:"score"`
	LastScore    int    `json:"last_score"`
	Tickets      int    `json:"tickets"`
	RemainingSec int    `json:"remaining_sec"`
	HighScore    int    `json:"high_score"`
}
