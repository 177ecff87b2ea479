package infra

import (
	"time"

	"admission-gateway/middleware/admission/domain"
)

// SystemClock é o relógio de produção.
var SystemClock domain.Clock = domain.ClockFunc(time.Now)
