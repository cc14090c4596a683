package main

import (
	"time"

	"go.uber.org/zap"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func millisToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func zapErrField(err error) zap.Field {
	return zap.Error(err)
}
