// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeTimeout      Code = "TIMEOUT"

	// 配置错误（致命，立即终止）
	CodeInvalidConfig        Code = "INVALID_CONFIG"
	CodeMissingRule          Code = "MISSING_RULE"
	CodeEmptyRoster          Code = "EMPTY_ROSTER"
	CodeMissingShiftCategory Code = "MISSING_SHIFT_CATEGORY"
	CodeUnknownShiftCode     Code = "UNKNOWN_SHIFT_CODE"
	CodeInvalidCalendar      Code = "INVALID_CALENDAR"

	// 排班结果
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// 外部数据源
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeDatabaseError     Code = "DATABASE_ERROR"
	CodePublishFailed     Code = "PUBLISH_FAILED"
	CodeValidationFail    Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeInvalidConfig, CodeMissingRule,
		CodeEmptyRoster, CodeMissingShiftCategory, CodeUnknownShiftCode, CodeInvalidCalendar:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeConstraintViolation:
		return http.StatusUnprocessableEntity
	case CodeSourceUnavailable, CodePublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsConfigError 判断是否为配置类错误
func IsConfigError(err error) bool {
	switch GetCode(err) {
	case CodeInvalidConfig, CodeMissingRule, CodeEmptyRoster, CodeMissingShiftCategory,
		CodeUnknownShiftCode, CodeInvalidCalendar:
		return true
	}
	return false
}

// NotFound 创建资源不存在错误
func NotFound(resource, key string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, key))
}

// MissingRule 创建缺少规则错误
func MissingRule(key string) *AppError {
	return New(CodeMissingRule, fmt.Sprintf("缺少必需的规则 '%s'", key)).WithField("rule", key)
}

// InvalidRule 创建规则值无效错误
func InvalidRule(key, reason string) *AppError {
	return New(CodeInvalidConfig, fmt.Sprintf("规则 '%s' 无效: %s", key, reason)).WithField("rule", key)
}

// EmptyRoster 创建空名单错误
func EmptyRoster() *AppError {
	return New(CodeEmptyRoster, "员工名单为空")
}

// MissingShiftCategory 创建缺少班次类别错误
func MissingShiftCategory(category string) *AppError {
	return New(CodeMissingShiftCategory, fmt.Sprintf("班次目录中没有类别为 '%s' 的班次", category)).
		WithField("category", category)
}

// UnknownShiftCode 创建未知班次代码错误
func UnknownShiftCode(code string) *AppError {
	return New(CodeUnknownShiftCode, fmt.Sprintf("班次代码 '%s' 未定义", code)).WithField("shift_code", code)
}

// InvalidCalendar 创建日历无效错误
func InvalidCalendar(reason string) *AppError {
	return New(CodeInvalidCalendar, fmt.Sprintf("日历无效: %s", reason))
}

// ConstraintViolations 将违反列表聚合为一个错误
func ConstraintViolations(messages []string) *AppError {
	err := New(CodeConstraintViolation, fmt.Sprintf("存在 %d 个约束违反", len(messages)))
	err.Details = strings.Join(messages, "; ")
	err.Fields = map[string]interface{}{"violations": messages}
	return err
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeInvalidConfig, ve.Error())
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	return err
}
