package response

// 业务状态码，HTTP 状态恒为 200
const (
	CodeOK              = 0
	CodeBadRequest      = 400 // 参数或 UID 格式错误
	CodeUnauthorized    = 401
	CodeForbidden       = 403 // RBAC 拒绝或芯片校验失败
	CodeNotFound        = 404
	CodeConflict        = 409 // 生命周期状态冲突或重复 UID
	CodeUnprocessable   = 422 // 配额与订阅等业务规则
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
