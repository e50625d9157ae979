package models

import "errors"

// ErrSensorUnavailable 传感器不可用（本地可恢复）
var ErrSensorUnavailable = errors.New("sensor unavailable")

// ErrCaptureFailed 采集失败（缓冲分配或硬件读取失败）
var ErrCaptureFailed = errors.New("capture failed")
