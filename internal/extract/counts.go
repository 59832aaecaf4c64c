package extract

import (
	"errors"
	"strconv"
	"strings"
)

// groupSeparators 为数字中可能出现的千位分隔符。
var groupSeparators = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "", "'", "")

var (
	errNotCount    = errors.New("not a non-negative integer")
	errMissingNode = errors.New("node not found")
)

// ParseCount 去除千位分隔符后解析为非负整数，如 "12,345" -> 12345。
func ParseCount(s string) (int64, error) {
	s = groupSeparators.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, errNotCount
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotCount
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// parseEpoch 解析 data-epoch 中的 unix 秒。
func parseEpoch(s string) (int64, error) {
	return ParseCount(s)
}
