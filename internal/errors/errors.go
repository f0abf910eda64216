package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005
	ErrCanceled         ErrorCode = 1006
	ErrNotImplemented   ErrorCode = 1007

	// 行动调度错误 (2000-2099)
	ErrPlayerNotFound ErrorCode = 2000
	ErrNotYourTurn    ErrorCode = 2001
	ErrUnknownAction  ErrorCode = 2002
	ErrGameNotStarted ErrorCode = 2003
	ErrGameFinished   ErrorCode = 2004

	// 交易与钱包错误 (2100-2199)
	ErrInsufficientFunds  ErrorCode = 2100
	ErrInsufficientCards  ErrorCode = 2101
	ErrInvalidPattern     ErrorCode = 2102
	ErrSameWalletTransfer ErrorCode = 2103
	ErrWalletNotFound     ErrorCode = 2104
	ErrInvalidAmount      ErrorCode = 2105

	// 挖矿与经济错误 (2200-2299)
	ErrMustOwnRig      ErrorCode = 2200
	ErrCannotAffordRig ErrorCode = 2201
	ErrNoRigsAvailable ErrorCode = 2202

	// 区块错误 (2300-2399)
	ErrBlockNotFound       ErrorCode = 2300
	ErrBlockAlreadyMined   ErrorCode = 2301
	ErrUnminedTransactions ErrorCode = 2302
	ErrBlockNotMinable     ErrorCode = 2303
	ErrInvalidTransaction  ErrorCode = 2304

	// 回合完整性错误 (2400-2499)
	ErrNoActivePlayers ErrorCode = 2400

	// 会话错误 (3000-3999)
	ErrSessionNotFound  ErrorCode = 3000
	ErrSessionExists    ErrorCode = 3001
	ErrSessionLimit     ErrorCode = 3002
	ErrSessionExpired   ErrorCode = 3003
	ErrTooManyPlayers   ErrorCode = 3004
	ErrNotEnoughPlayers ErrorCode = 3005

	// 通信错误 (4000-4999)
	ErrWebSocketConnect ErrorCode = 4000
	ErrWebSocketSend    ErrorCode = 4001
	ErrWebSocketReceive ErrorCode = 4002
	ErrWebSocketClosed  ErrorCode = 4003
	ErrMessageFormat    ErrorCode = 4007

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003
	ErrDatabaseDelete  ErrorCode = 5004
	ErrTransaction     ErrorCode = 5005
	ErrDataIntegrity   ErrorCode = 5006

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigParse    ErrorCode = 6001
	ErrConfigValidate ErrorCode = 6002
	ErrConfigMissing  ErrorCode = 6003

	// 安全错误 (7000-7999)
	ErrAuthentication    ErrorCode = 7000
	ErrAuthorization     ErrorCode = 7001
	ErrTokenExpired      ErrorCode = 7002
	ErrTokenInvalid      ErrorCode = 7003
	ErrRateLimitExceeded ErrorCode = 7004
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",
	ErrCanceled:         "操作已取消",
	ErrNotImplemented:   "功能未实现",

	// 行动调度错误
	ErrPlayerNotFound: "玩家不存在",
	ErrNotYourTurn:    "还没轮到你的回合",
	ErrUnknownAction:  "未知的游戏行动",
	ErrGameNotStarted: "游戏尚未开始",
	ErrGameFinished:   "游戏已经结束",

	// 交易与钱包错误
	ErrInsufficientFunds:  "热钱包余额不足",
	ErrInsufficientCards:  "牌堆剩余卡牌不足",
	ErrInvalidPattern:     "交易卡牌模式无效，必须为 身份+比特币+身份+哈希",
	ErrSameWalletTransfer: "发送方与接收方不能是同一个钱包",
	ErrWalletNotFound:     "钱包不存在",
	ErrInvalidAmount:      "无效的转移数量",

	// 挖矿与经济错误
	ErrMustOwnRig:      "至少需要一台矿机才能挖矿",
	ErrCannotAffordRig: "买不起矿机",
	ErrNoRigsAvailable: "矿机池已售罄",

	// 区块错误
	ErrBlockNotFound:       "区块不存在",
	ErrBlockAlreadyMined:   "区块已被挖出",
	ErrUnminedTransactions: "当前区块还有未挖出的交易",
	ErrBlockNotMinable:     "区块不满足难度要求",
	ErrInvalidTransaction:  "无效的交易",

	// 回合完整性错误
	ErrNoActivePlayers: "没有在场的玩家",

	// 会话错误
	ErrSessionNotFound:  "游戏会话不存在",
	ErrSessionExists:    "游戏会话已存在",
	ErrSessionLimit:     "会话数量已达上限",
	ErrSessionExpired:   "游戏会话已过期",
	ErrTooManyPlayers:   "玩家数量超过钱包数量上限",
	ErrNotEnoughPlayers: "玩家数量不足",

	// 通信错误
	ErrWebSocketConnect: "WebSocket连接失败",
	ErrWebSocketSend:    "WebSocket发送失败",
	ErrWebSocketReceive: "WebSocket接收失败",
	ErrWebSocketClosed:  "WebSocket连接已关闭",
	ErrMessageFormat:    "消息格式错误",

	// 数据库错误
	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrDatabaseDelete:  "数据库删除失败",
	ErrTransaction:     "事务处理失败",
	ErrDataIntegrity:   "数据完整性错误",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",
	ErrConfigMissing:  "配置项缺失",

	// 安全错误
	ErrAuthentication:    "认证失败",
	ErrAuthorization:     "授权失败",
	ErrTokenExpired:      "令牌已过期",
	ErrTokenInvalid:      "无效的令牌",
	ErrRateLimitExceeded: "请求频率超限",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`    // 错误码
	Message string       `json:"message"` // 错误消息
	Details string       `json:"details"` // 详细信息
	Cause   error        `json:"-"`       // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"`
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// IsGameRuleError 判断是否为游戏规则校验错误（可恢复，引擎保证状态未被修改）
func IsGameRuleError(err error) bool {
	code := GetCode(err)
	return code >= 2000 && code < 3000
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/wfunc/hodl-up/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code >= 2000 && e.Code < 3000:
		return 400 // 游戏规则校验失败
	case e.Code == ErrNotFound || e.Code == ErrSessionNotFound:
		return 404 // Not Found
	case e.Code == ErrPermissionDenied:
		return 403 // Forbidden
	case e.Code == ErrTimeout:
		return 408 // Request Timeout
	case e.Code >= 7000 && e.Code <= 7003:
		return 401 // Unauthorized
	case e.Code == ErrRateLimitExceeded:
		return 429 // Too Many Requests
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	case e.Code == ErrInvalidParam:
		return 400 // Bad Request
	default:
		return 500 // Internal Server Error
	}
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrTimeout,
		ErrWebSocketConnect,
		ErrDatabaseConnect:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrDatabaseConnect,
		ErrConfigLoad,
		ErrConfigMissing,
		ErrDataIntegrity,
		ErrNoActivePlayers:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
