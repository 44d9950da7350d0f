package alohacast

import "github.com/pkg/errors"

var (
	errNotPrepared      = errors.New("no input prepared")
	errAlreadyStreaming = errors.New("already streaming")
	errAlreadyRecording = errors.New("already recording")
)
