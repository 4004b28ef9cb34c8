package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeTime 将浮点时间写成线上格式：小数点替换为 '-'，避免与字段分隔符冲突。
// 时间值不为负，负数按 0 处理。
func EncodeTime(t float64) string {
	if t < 0 {
		t = 0
	}
	return strings.Replace(strconv.FormatFloat(t, 'f', -1, 64), ".", "-", 1)
}

// DecodeTime 是 EncodeTime 的逆过程
func DecodeTime(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty time literal: %w", ErrMalformed)
	}
	v, err := strconv.ParseFloat(strings.Replace(s, "-", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("time literal %q: %w", s, ErrMalformed)
	}
	return v, nil
}
