package svc

import "errors"

// ErrNoFeedsEnabled 错误：没有启用任何数据种类
var ErrNoFeedsEnabled = errors.New("no feed kinds enabled")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrUnknownKind 错误：配置了未注册的数据种类
var ErrUnknownKind = errors.New("unknown feed kind")
