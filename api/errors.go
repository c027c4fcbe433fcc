package api

import "errors"

var (
	errInvalidBody         = errors.New("invalid request body")
	errInvalidHistoryLimit = errors.New("history_limit must be an integer")
)
