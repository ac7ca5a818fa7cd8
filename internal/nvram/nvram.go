package nvram

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/wfunc/ball-toss/internal/errors"
	"github.com/wfunc/ball-toss/internal/logger"
	"go.uber.org/zap"
)

// Store 字节寻址的非易失存储接口
type Store interface {
	// ReadByte 读取一个字节
	ReadByte(addr int) (byte, error)
	// WriteByte 写入一个字节
	WriteByte(addr int, value byte) error
	// Sync 确保写入落盘
	Sync() error
	// Close 关闭存储
	Close() error
}

// FileStore 文件后备的NVRAM实现（模拟片上EEPROM，掉电保持）
type FileStore struct {
	mu     sync.Mutex
	file   *os.File
	size   int
	logger *zap.Logger
}

// OpenFile 打开（或创建）NVRAM后备文件，新文件全部填零
func OpenFile(path string, size int) (*FileStore, error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParam, "NVRAM大小无效: %d", size)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrNVRAMOpen)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNVRAMOpen, "路径: %s", path)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrNVRAMOpen)
	}

	// 新文件或尺寸变更时扩展到固定大小，扩展部分为零
	if info.Size() < int64(size) {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, errors.Wrap(err, errors.ErrNVRAMOpen)
		}
	}

	return &FileStore{
		file:   file,
		size:   size,
		logger: logger.GetModuleLogger("nvram"),
	}, nil
}

// Size 返回存储大小
func (s *FileStore) Size() int {
	return s.size
}

// ReadByte 读取一个字节
func (s *FileStore) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= s.size {
		return 0, errors.Newf(errors.ErrNVRAMAddress, "地址: %d", addr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 1)
	if _, err := s.file.ReadAt(buf, int64(addr)); err != nil {
		logger.LogNVRAMOp("read", addr, 0, err)
		return 0, errors.Wrapf(err, errors.ErrNVRAMRead, "地址: %d", addr)
	}

	return buf[0], nil
}

// WriteByte 写入一个字节
func (s *FileStore) WriteByte(addr int, value byte) error {
	if addr < 0 || addr >= s.size {
		return errors.Newf(errors.ErrNVRAMAddress, "地址: %d", addr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteAt([]byte{value}, int64(addr)); err != nil {
		logger.LogNVRAMOp("write", addr, value, err)
		return errors.Wrapf(err, errors.ErrNVRAMWrite, "地址: %d", addr)
	}

	logger.LogNVRAMOp("write", addr, value, nil)
	return nil
}

// Sync 确保写入落盘
func (s *FileStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, errors.ErrNVRAMWrite, "同步失败")
	}
	return nil
}

// Close 关闭存储
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemStore 内存NVRAM实现（用于测试）
type MemStore struct {
	mu    sync.Mutex
	bytes []byte
}

// NewMemStore 创建内存存储
func NewMemStore(size int) *MemStore {
	return &MemStore{bytes: make([]byte, size)}
}

// ReadByte 读取一个字节
func (s *MemStore) ReadByte(addr int) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr < 0 || addr >= len(s.bytes) {
		return 0, errors.Newf(errors.ErrNVRAMAddress, "地址: %d", addr)
	}
	return s.bytes[addr], nil
}

// WriteByte 写入一个字节
func (s *MemStore) WriteByte(addr int, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr < 0 || addr >= len(s.bytes) {
		return errors.Newf(errors.ErrNVRAMAddress, "地址: %d", addr)
	}
	s.bytes[addr] = value
	return nil
}

// Sync 内存存储无需落盘
func (s *MemStore) Sync() error { return nil }

// Close 关闭存储
func (s *MemStore) Close() error { return nil }
