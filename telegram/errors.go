package telegram

import "strings"

type ErrClass int

const (
	ErrTransient ErrClass = iota
	ErrRecipientBlocked
	ErrBadRequest
	ErrAuth
)

func (c ErrClass) String() string {
	switch c {
	case ErrRecipientBlocked:
		return "recipient_blocked"
	case ErrBadRequest:
		return "bad_request"
	case ErrAuth:
		return "auth"
	default:
		return "transient"
	}
}

// Classify sorts a platform error into the retry buckets. Only
// transient errors are worth retrying at higher layers.
func Classify(err error) ErrClass {
	if err == nil {
		return ErrTransient
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "forbidden") || strings.Contains(msg, "blocked by the user") ||
		strings.Contains(msg, "user is deactivated") || strings.Contains(msg, "chat not found"):
		return ErrRecipientBlocked
	case strings.Contains(msg, "bad request"):
		return ErrBadRequest
	case strings.Contains(msg, "unauthorized"):
		return ErrAuth
	default:
		return ErrTransient
	}
}

// IsPermanent reports errors that will not succeed on retry.
func IsPermanent(err error) bool {
	c := Classify(err)
	return c == ErrRecipientBlocked || c == ErrBadRequest
}
