package domain

import "errors"

var (
	ErrEmptyMessage        = errors.New("message has neither text nor image")
	ErrNoData              = errors.New("No data received")
	ErrNoTitle             = errors.New("no title in proxy response")
	ErrChatNotFound        = errors.New("chat not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrTrialUnavailable    = errors.New("trial not available")
	ErrPaymentAlreadyTaken = errors.New("payment already recorded")
	ErrUnsupportedImage    = errors.New("unsupported image format")
)
