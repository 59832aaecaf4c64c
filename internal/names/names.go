// 包 names 提供实体名称的规范化，发送方/转化实体/收件人统一经过此函数。
package names

import "strings"

// Normalize 转小写并将空格替换为下划线，对任意字符串都有定义且幂等。
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
