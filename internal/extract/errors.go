package extract

import "fmt"

// saveMessage 为保存前展开状态复查失败时的提示。
const saveMessage = "Make sure you have clicked all 'Expand' buttons before trying to save the report!"

// Diagnostic 由可以向用户展示补救提示的错误实现。
type Diagnostic interface {
	error
	Diagnostic() string
}

// IdentityError 表示无法解析群发 ID；后续所有查找都依赖该 ID，因此不提供补救提示。
type IdentityError struct {
	Link   string
	Reason string
	Err    error
}

func (e *IdentityError) Error() string {
	if e.Link == "" {
		return "resolve campaign id: " + e.Reason
	}
	return fmt.Sprintf("resolve campaign id from %q: %s", e.Link, e.Reason)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// GateError 表示某个前置检查未通过。
type GateError struct {
	Gate    Gate
	Message string
}

func (e *GateError) Error() string      { return fmt.Sprintf("gate %s failed: %s", e.Gate, e.Message) }
func (e *GateError) Diagnostic() string { return e.Message }

// FieldError 表示节点存在但内容无法解析。
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("read %s from %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Diagnostic() string {
	return fmt.Sprintf("Unable to read %s from the report page! The page layout may have changed.", e.Field)
}

// DuplicateCountError 表示同一类汇总条目出现多次；不覆盖也不相加。
type DuplicateCountError struct {
	Class string
}

func (e *DuplicateCountError) Error() string {
	return fmt.Sprintf("report summary lists more than one %s count", e.Class)
}

func (e *DuplicateCountError) Diagnostic() string {
	return fmt.Sprintf("The report summary lists more than one %s count, so it cannot be saved unambiguously.", e.Class)
}
