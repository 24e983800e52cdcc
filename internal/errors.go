package internal

import "github.com/pkg/errors"

// ErrConfig - неверная конфигурация или входные данные, обнаруженные до начала работы.
var ErrConfig = errors.New("invalid configuration")

// ErrShortWindow - окно свечей короче, чем нужно индикатору.
var ErrShortWindow = errors.New("not enough candles for indicator window")
