package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxUsername  = "auth.username"
	CtxRole      = "auth.role"
	CtxRecordID  = "admin.recordID"
)
