package asr

import "errors"

var errConnectFailed = errors.New("asr: deepgram connect failed")
var errNotConnected = errors.New("asr: not connected")
