package pipeline

import "errors"

var (
	ErrCycle       = errors.New("dependency cycle detected")
	ErrFileSystem  = errors.New("file system operation failed")
	ErrStage       = errors.New("recipe stage failed")
	ErrUnknownDep  = errors.New("unknown dependency")
	ErrAttemptFail = errors.New("recipe already attempted and failed in this run")
)
