package payments

import (
	"fmt"
	"strconv"
	"strings"

	"lessonbot/errs"
)

// Invoice payloads look like "lesson_<lesson_id>_<user_id>_<unix_ts>".
// Only the first three underscore fields are load-bearing; trailing
// extras are tolerated and ignored.

func BuildPayload(lessonID int, userID int64, unixTS int64) string {
	return fmt.Sprintf("lesson_%d_%d_%d", lessonID, userID, unixTS)
}

func ParsePayload(payload string) (lessonID int, userID int64, err error) {
	parts := strings.Split(payload, "_")
	if len(parts) < 3 || parts[0] != "lesson" {
		return 0, 0, errs.Newf(errs.PaymentValidation, "malformed invoice payload %q", payload)
	}
	lessonID, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errs.Newf(errs.PaymentValidation, "bad lesson id in payload %q", payload)
	}
	userID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, errs.Newf(errs.PaymentValidation, "bad user id in payload %q", payload)
	}
	return lessonID, userID, nil
}
