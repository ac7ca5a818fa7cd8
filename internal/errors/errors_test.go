package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	// 测试基本错误创建
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	// 测试带详情的错误
	err = New(ErrNVRAMAddress, "地址: 9999")
	suite.NotNil(err)
	suite.Equal(ErrNVRAMAddress, err.Code)
	suite.Equal("NVRAM地址越界", err.Message)
	suite.Equal("地址: 9999", err.Details)

	// 测试多个详情
	err = New(ErrSerialPortOpen, "打开失败", "端口: /dev/ttyS1", "波特率: 9600")
	suite.Equal("打开失败; 端口: /dev/ttyS1; 波特率: 9600", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidParam, "参数 %s 的值 %d 无效", "playTime", -1)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("参数 playTime 的值 -1 无效", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	// 包装标准错误
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrNVRAMRead)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrNVRAMRead, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	nilErr := Wrap(nil, ErrUnknown)
	suite.Nil(nilErr)

	// 包装已有的AppError
	appErr := New(ErrGameStateError, "状态不匹配")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrGameStateError, wrappedAppErr.Code) // 保留原始错误码
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试格式化错误包装
func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("写入超时")
	wrappedErr := Wrapf(originalErr, ErrNVRAMWrite, "地址 %d 写入失败", 128)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrNVRAMWrite, wrappedErr.Code)
	suite.Equal("地址 128 写入失败", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrInsufficientCredits)
	suite.True(Is(err, ErrInsufficientCredits))
	suite.False(Is(err, ErrGameNotStarted))
	suite.False(Is(nil, ErrInsufficientCredits))

	// 测试标准错误
	standardErr := errors.New("标准错误")
	suite.False(Is(standardErr, ErrUnknown))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	// AppError
	appErr := New(ErrDispenseFailed)
	suite.Equal(ErrDispenseFailed, GetCode(appErr))

	// 标准错误
	standardErr := errors.New("标准错误")
	suite.Equal(ErrUnknown, GetCode(standardErr))

	// nil错误
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	// 只有消息
	err := &AppError{
		Code:    ErrNVRAMRead,
		Message: "NVRAM读取失败",
	}
	suite.Equal("[4001] NVRAM读取失败", err.Error())

	// 有详情
	err.Details = "地址: 128"
	suite.Equal("[4001] NVRAM读取失败: 地址: 128", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrUnknown)
	suite.Equal(originalErr, wrappedErr.Unwrap())

	// 无原因错误
	plainErr := New(ErrTimeout)
	suite.Nil(plainErr.Unwrap())
}

// 测试可重试判断
func (suite *ErrorsTestSuite) TestIsRetryable() {
	suite.True(IsRetryable(New(ErrTimeout)))
	suite.True(IsRetryable(New(ErrNVRAMWrite)))
	suite.False(IsRetryable(New(ErrInvalidParam)))
	suite.False(IsRetryable(nil))
}

// 测试严重错误判断
func (suite *ErrorsTestSuite) TestIsCritical() {
	suite.True(IsCritical(New(ErrNVRAMOpen)))
	suite.True(IsCritical(New(ErrPinConfigure)))
	suite.False(IsCritical(New(ErrTimeout)))
	suite.False(IsCritical(nil))
}

// TestErrorsSuite 运行测试套件
func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
