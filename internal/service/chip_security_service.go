package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	chipBlockBytes   = 16
	chipBlockHexLen  = chipBlockBytes * 2
	defaultSaltBytes = 16
	chipKeyInfo      = "chip-key:"
)

// ChipSecurityService 芯片加密与防克隆校验
type ChipSecurityService struct {
	checksumSecret []byte
	keySecret      []byte
	saltBytes      int
	random         io.Reader
}

// ActivationPayload 移动端读取的标签数据
type ActivationPayload struct {
	ChipID     string `json:"chip_id"`
	Block4Data string `json:"block4_data"`
	Block8Data string `json:"block8_data"`
}

// NewChipSecurityService 创建芯片安全服务
func NewChipSecurityService(cfg config.ChipConfig) *ChipSecurityService {
	saltBytes := cfg.SaltBytes
	if saltBytes <= 0 {
		saltBytes = defaultSaltBytes
	}
	return &ChipSecurityService{
		checksumSecret: []byte(cfg.ChecksumSecret),
		keySecret:      []byte(cfg.KeySecret),
		saltBytes:      saltBytes,
		random:         rand.Reader,
	}
}

// GenerateSalt 生成随机盐值（大写十六进制）
func (s *ChipSecurityService) GenerateSalt() (string, error) {
	buf := make([]byte, s.saltBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", wrapDependency(ErrChipCryptoFailed, err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// GenerateChipID 生成与 UID 无关的芯片标识
func (s *ChipSecurityService) GenerateChipID() string {
	return uuid.NewString()
}

// GenerateChecksum 计算 UID、盐值与芯片标识的绑定摘要（写入 block 8）
func (s *ChipSecurityService) GenerateChecksum(uid, salt, chipID string) string {
	return strings.ToUpper(hex.EncodeToString(s.checksum(uid, salt, chipID)))
}

// GenerateChipKey 派生产线编码工具使用的芯片密钥，不下发给移动端
func (s *ChipSecurityService) GenerateChipKey(chipID string) (string, error) {
	reader := hkdf.New(sha256.New, s.keySecret, nil, []byte(chipKeyInfo+strings.ToLower(strings.TrimSpace(chipID))))
	key := make([]byte, chipBlockBytes)
	if _, err := io.ReadFull(reader, key); err != nil {
		return "", wrapDependency(ErrChipCryptoFailed, err)
	}
	return strings.ToUpper(hex.EncodeToString(key)), nil
}

// ValidateChecksum 重新计算并与大写十六进制形式逐字符常量时间比较，大小写不同视为不匹配
func (s *ChipSecurityService) ValidateChecksum(uid, salt, chipID, checksum string) bool {
	provided := strings.TrimSpace(checksum)
	if len(provided) != chipBlockHexLen {
		return false
	}
	expected := s.GenerateChecksum(uid, salt, chipID)
	return hmac.Equal([]byte(expected), []byte(provided))
}

func (s *ChipSecurityService) checksum(uid, salt, chipID string) []byte {
	mac := hmac.New(sha256.New, s.checksumSecret)
	mac.Write([]byte(strings.TrimSpace(uid)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strings.TrimSpace(salt)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strings.TrimSpace(chipID)))
	return mac.Sum(nil)[:chipBlockBytes]
}

// BuildBlock4Payload 芯片内部编号的 ASCII，NUL 补齐到 16 字节后转十六进制
func (s *ChipSecurityService) BuildBlock4Payload(chip *models.RfidChip) string {
	block := make([]byte, chipBlockBytes)
	copy(block, registryIdentifier(chip))
	return strings.ToUpper(hex.EncodeToString(block))
}

// DecodeBlock4Payload 解码 block 4 并去除填充
func DecodeBlock4Payload(data string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(data))
	if err != nil || len(raw) != chipBlockBytes {
		return "", ErrChipPayloadMalformed
	}
	return string(bytes.Trim(raw, "\x00 ")), nil
}

func registryIdentifier(chip *models.RfidChip) string {
	if chip == nil {
		return ""
	}
	return strconv.FormatUint(uint64(chip.ID), 10)
}

// CheckPayloadFormat 校验标签数据完整且格式正确（非安全拦截）
func CheckPayloadFormat(payload ActivationPayload) error {
	if strings.TrimSpace(payload.ChipID) == "" ||
		strings.TrimSpace(payload.Block4Data) == "" ||
		strings.TrimSpace(payload.Block8Data) == "" {
		return ErrChipPayloadMissing
	}
	if _, err := uuid.Parse(strings.TrimSpace(payload.ChipID)); err != nil {
		return ErrChipPayloadMalformed
	}
	if !IsHexBlock(strings.TrimSpace(payload.Block4Data)) || !IsHexBlock(strings.TrimSpace(payload.Block8Data)) {
		return ErrChipPayloadMalformed
	}
	return nil
}

// VerifyActivationPayload 依次比对芯片标识、block 4 与 block 8
func (s *ChipSecurityService) VerifyActivationPayload(chip *models.RfidChip, payload ActivationPayload) error {
	if chip == nil {
		return newSecurityError(constants.ChipSecurityReasonUnknownUID, ErrChipUnknownUID)
	}
	if err := CheckPayloadFormat(payload); err != nil {
		return err
	}

	submitted, _ := uuid.Parse(strings.TrimSpace(payload.ChipID))
	registered, err := uuid.Parse(chip.ChipID)
	if err != nil || submitted != registered {
		return newSecurityError(constants.ChipSecurityReasonChipIDMismatch, ErrChipIDMismatch)
	}

	block4, err := DecodeBlock4Payload(payload.Block4Data)
	if err != nil {
		return err
	}
	if block4 != registryIdentifier(chip) {
		return newSecurityError(constants.ChipSecurityReasonBlock4Mismatch, ErrChipBlock4Mismatch)
	}

	if !chip.IsEncoded() {
		return newSecurityError(constants.ChipSecurityReasonChecksumCorrupt, ErrChipChecksumMismatch)
	}
	block8 := strings.ToUpper(strings.TrimSpace(payload.Block8Data))
	if !hmac.Equal([]byte(block8), []byte(*chip.Checksum)) {
		return newSecurityError(constants.ChipSecurityReasonChecksumMismatch, ErrChipChecksumMismatch)
	}
	if !s.ValidateChecksum(chip.UID, *chip.Salt, chip.ChipID, *chip.Checksum) {
		return newSecurityError(constants.ChipSecurityReasonChecksumCorrupt, ErrChipChecksumMismatch)
	}
	return nil
}

// IsSecurityViolation 判断错误是否为安全拦截
func IsSecurityViolation(err error) bool {
	return errors.Is(err, ErrChipSecurityViolation)
}
