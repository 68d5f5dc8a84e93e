package response

// AppError 接口错误：业务码 + 文案键，Cause 只进日志不返回给调用方
type AppError struct {
	Code  int
	Key   string
	Args  []interface{}
	Data  map[string]interface{}
	Cause error
}

// NewAppError 创建接口错误
func NewAppError(code int, key string) *AppError {
	return &AppError{Code: code, Key: key}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Key
	}
	return e.Key + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithArgs 文案格式化参数
func (e *AppError) WithArgs(args ...interface{}) *AppError {
	e.Args = args
	return e
}

// WithData 附带返回给调用方的业务数据
func (e *AppError) WithData(data map[string]interface{}) *AppError {
	e.Data = data
	return e
}

// WithCause 记录原始错误
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}
