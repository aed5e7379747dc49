package handler

import "errors"

var (
	errInvalidTiming      = errors.New("hour must be 0-23 and minute 0-59")
	errWeekdayRequired    = errors.New("weekly schedules require weekday 0-6 (0=Monday)")
	errDayOfMonthRequired = errors.New("monthly schedules require day_of_month 1-31")
	errInvalidFrequency   = errors.New("frequency must be daily, weekly or monthly")
)
