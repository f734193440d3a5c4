package domain

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

const (
	CodeSeatLimit        = "seat_limit"
	CodeSessionExpired   = "session_expired"
	CodeMapUnavailable   = "map_unavailable"
	CodeNoRoutes         = "no_routes"
	CodeNoSchedules      = "no_schedules"
	CodeInvalidInput     = "invalid_input"
	CodeSignedIn         = "signed_in"
	CodeRegistered       = "registered"
	CodeSignedOut        = "signed_out"
	CodeReserved         = "reserved"
	CodeReservationError = "reservation_failed"
	CodeAvailabilityErr  = "availability_failed"
	CodeDirectoryError   = "directory_failed"
	CodeProfileError     = "profile_failed"
	CodePaymentConfirmed = "payment_confirmed"
	CodePaymentRejected  = "payment_rejected"
	CodeAuthFailed       = "auth_failed"
)

// Notice is a user-visible toast.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

func InfoNotice(code, message string) Notice {
	return Notice{Level: NoticeInfo, Code: code, Message: message}
}

func SuccessNotice(code, message string) Notice {
	return Notice{Level: NoticeSuccess, Code: code, Message: message}
}

func ErrorNotice(code, message string) Notice {
	return Notice{Level: NoticeError, Code: code, Message: message}
}
