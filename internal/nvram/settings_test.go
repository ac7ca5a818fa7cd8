package nvram

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// SettingsTestSuite 参数存储测试套件
type SettingsTestSuite struct {
	suite.Suite
	store *MemStore
	ss    *SettingsStore
}

// SetupTest 每个测试前初始化
func (suite *SettingsTestSuite) SetupTest() {
	suite.store = NewMemStore(1080)
	suite.ss = NewSettingsStore(suite.store)
}

// 测试首次上电初始化
func (suite *SettingsTestSuite) TestFirstBootWritesDefaults() {
	settings, err := suite.ss.Load()
	suite.NoError(err)
	suite.NotNil(settings)

	// 出厂默认值
	suite.Equal(byte(DefaultHighScore), settings.HighScore)
	suite.Equal(byte(DefaultTicketsPerScore), settings.TicketsPerScore)
	suite.Equal(byte(DefaultPlaysPerCredit), settings.PlaysPerCredit)
	suite.Equal(byte(DefaultPlayTime), settings.PlayTime)
	suite.Equal(byte(DefaultAttractTime), settings.AttractTime)

	// 哨兵已置位
	sentinel, err := suite.store.ReadByte(AddrInitialized)
	suite.NoError(err)
	suite.Equal(byte(1), sentinel)
}

// 测试哨兵置位后不再覆盖已存参数
func (suite *SettingsTestSuite) TestSentinelPreservesPersistedValues() {
	// 首次加载写入默认值
	_, err := suite.ss.Load()
	suite.NoError(err)

	// 模拟运营中被改写的参数
	suite.NoError(suite.store.WriteByte(AddrHighScore, 42))
	suite.NoError(suite.store.WriteByte(AddrPlayTime, 30))

	// 再次加载（模拟重新上电）不得重置
	settings, err := suite.ss.Load()
	suite.NoError(err)
	suite.Equal(byte(42), settings.HighScore)
	suite.Equal(byte(30), settings.PlayTime)
}

// 测试最高分往返
func (suite *SettingsTestSuite) TestSaveHighScoreRoundTrip() {
	_, err := suite.ss.Load()
	suite.NoError(err)

	suite.NoError(suite.ss.SaveHighScore(27))

	settings, err := suite.ss.Load()
	suite.NoError(err)
	suite.Equal(byte(27), settings.HighScore)
}

// 测试最高分是唯一被回写的字段
func (suite *SettingsTestSuite) TestSaveHighScoreTouchesOnlyHighScore() {
	_, err := suite.ss.Load()
	suite.NoError(err)

	suite.NoError(suite.store.WriteByte(AddrTicketsPerScore, 9))
	suite.NoError(suite.ss.SaveHighScore(99))

	settings, err := suite.ss.Load()
	suite.NoError(err)
	suite.Equal(byte(99), settings.HighScore)
	suite.Equal(byte(9), settings.TicketsPerScore)
}

// TestSettingsSuite 运行测试套件
func TestSettingsSuite(t *testing.T) {
	suite.Run(t, new(SettingsTestSuite))
}

// FileStoreTestSuite 文件存储测试套件
type FileStoreTestSuite struct {
	suite.Suite
	path string
}

// SetupTest 每个测试前初始化
func (suite *FileStoreTestSuite) SetupTest() {
	suite.path = filepath.Join(suite.T().TempDir(), "nvram.bin")
}

// 测试新文件填零
func (suite *FileStoreTestSuite) TestNewFileIsZeroFilled() {
	store, err := OpenFile(suite.path, 1080)
	suite.Require().NoError(err)
	defer store.Close()

	for _, addr := range []int{0, 128, 132, 1079} {
		value, err := store.ReadByte(addr)
		suite.NoError(err)
		suite.Equal(byte(0), value)
	}
}

// 测试跨打开周期持久化
func (suite *FileStoreTestSuite) TestPersistsAcrossReopen() {
	store, err := OpenFile(suite.path, 1080)
	suite.Require().NoError(err)
	suite.NoError(store.WriteByte(AddrHighScore, 7))
	suite.NoError(store.Sync())
	suite.NoError(store.Close())

	// 模拟重新上电
	store, err = OpenFile(suite.path, 1080)
	suite.Require().NoError(err)
	defer store.Close()

	value, err := store.ReadByte(AddrHighScore)
	suite.NoError(err)
	suite.Equal(byte(7), value)
}

// 测试地址越界
func (suite *FileStoreTestSuite) TestAddressOutOfRange() {
	store, err := OpenFile(suite.path, 16)
	suite.Require().NoError(err)
	defer store.Close()

	_, err = store.ReadByte(16)
	suite.Error(err)
	suite.Error(store.WriteByte(-1, 0))
}

// TestFileStoreSuite 运行测试套件
func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreTestSuite))
}
