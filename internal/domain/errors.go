package domain

import "errors"

var (
	ErrInvalidBuyer    = errors.New("invalid buyer id")
	ErrMissingSigil    = errors.New("recipient is missing the @ prefix")
	ErrEmptyRecipient  = errors.New("recipient is empty")
	ErrNoQuantity      = errors.New("no quantity in text")
	ErrSettingsMissing = errors.New("settings file missing")
)
