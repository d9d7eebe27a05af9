package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/repository"
)

const (
	codeAlphabet       = "abcdefghijklmnopqrstuvwxyz0123456789"
	CodeLength         = 8
	FallbackCodeLength = 10
	maxCodeAttempts    = 10
)

// 大于等于该值的随机字节被丢弃，保证 36 个字符等概率
const codeByteLimit = 256 - 256%len(codeAlphabet)

// CodeGenerator 生成房间码
type CodeGenerator struct {
	roomRepo repository.RoomRepository
	random   io.Reader
}

// NewCodeGenerator 创建 CodeGenerator，使用 crypto/rand 作为随机源
func NewCodeGenerator(roomRepo repository.RoomRepository) *CodeGenerator {
	return NewCodeGeneratorWithSource(roomRepo, rand.Reader)
}

// NewCodeGeneratorWithSource 使用指定随机源创建 CodeGenerator
func NewCodeGeneratorWithSource(roomRepo repository.RoomRepository, random io.Reader) *CodeGenerator {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for CodeGenerator")
	}
	return &CodeGenerator{roomRepo: roomRepo, random: random}
}

// Generate 生成长度为 n 的随机码，字符取自小写字母和数字
func (g *CodeGenerator) Generate(n int) (string, error) {
	code := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(code) < n {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= codeByteLimit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == n {
				break
			}
		}
	}
	return string(code), nil
}

// CreateUnique 生成一个当前未被占用的 8 位房间码。
// 连续 10 次冲突后退回 10 位码，且不再检查唯一性。
func (g *CodeGenerator) CreateUnique(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.Generate(CodeLength)
		if err != nil {
			return "", err
		}
		exists, err := g.roomRepo.IsCodeExists(ctx, code)
		if err != nil {
			logrus.WithError(err).WithField("room_code", code).Error("Database error checking room code uniqueness")
			return "", fmt.Errorf("database error checking room code: %w", err)
		}
		if !exists {
			logrus.WithField("room_code", code).Debugf("Generated unique room code after %d attempt(s).", attempt+1)
			return code, nil
		}
		logrus.WithField("room_code", code).Warnf("Generated room code already exists, retrying (attempt %d)...", attempt+1)
	}

	logrus.Warnf("No unique %d-character room code after %d attempts, falling back to %d characters",
		CodeLength, maxCodeAttempts, FallbackCodeLength)
	return g.Generate(FallbackCodeLength)
}
