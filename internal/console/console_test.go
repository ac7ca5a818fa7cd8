package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// 控制台消息是维修约定，逐条验证关键字段
func TestConsoleMessages(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Boot("V0.2-2026-08-28")
	c.StorageInitialized(60)
	c.CreditAccepted(3)
	c.DelayingNextGame(10)
	c.GameStarted(2)
	c.GameTimeLeft(42)
	c.BeatHighScore()
	c.GameEnded(7, 28)

	out := buf.String()
	assert.Contains(t, out, "V0.2-2026-08-28")
	assert.Contains(t, out, "EEPROM Initialized")
	assert.Contains(t, out, "Play Time: 60")
	assert.Contains(t, out, "Got Credit, new balance: 3")
	assert.Contains(t, out, "Delaying next game by 10sec")
	assert.Contains(t, out, "Game started, new balance: 2")
	assert.Contains(t, out, "Game time left: 42")
	assert.Contains(t, out, "Beat high score")
	assert.Contains(t, out, "Game ended, Final score: 7, Tickets earned: 28")
}

// 倒计时：起始行、每秒一个点、换行收尾
func TestConsoleCountdown(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.CountdownBegin(10)
	for i := 0; i < 10; i++ {
		c.CountdownDot()
	}
	c.CountdownEnd()

	assert.Contains(t, buf.String(), "Starting next game in 10 seconds..........\r\n")
}
