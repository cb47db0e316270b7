package validator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// maxPayloadBytes 对齐链上单包交易的上限，解码后超过即拒绝。
const maxPayloadBytes = 1232

var (
	errEmptyPayload = errors.New("transaction payload is empty")
	errPayloadSize  = fmt.Errorf("transaction payload exceeds %d bytes", maxPayloadBytes)
)

// DecodePayload 将 base64 编码的交易载荷解码为原始字节并校验大小。
func DecodePayload(payload string) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, errEmptyPayload
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, errEmptyPayload
	}
	if len(raw) > maxPayloadBytes {
		return nil, errPayloadSize
	}
	return raw, nil
}

// ValidateEmail 校验邮箱格式，要求为裸地址（不含显示名）。
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	if addr.Address != email {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}
