package services

import (
	"errors"
	"fmt"
	"time"
)

// 业务错误，controller 层用 errors.Is/As 映射到 HTTP 状态码
var (
	ErrNotFound        = errors.New("not found")
	ErrNotAMember      = errors.New("target is not a member of this wall")
	ErrNotAParticipant = errors.New("not a participant of this conversation")
	ErrInvalidStatus   = errors.New("unknown relationship status")
)

// TooSoonError 撤回锁定未到期，带剩余等待时间
type TooSoonError struct {
	Remaining time.Duration
}

func (e *TooSoonError) Error() string {
	h := int(e.Remaining.Hours())
	m := int(e.Remaining.Minutes()) % 60
	return fmt.Sprintf("crush can be removed in %dh%02dm", h, m)
}
