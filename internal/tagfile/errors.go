package tagfile

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptContainer  = errors.New("corrupt container")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileNotFound      = errors.New("file not found")
	ErrIO                = errors.New("i/o error")
)

// OpenError は Open の失敗を表す。Kind は上の4つのいずれか。
type OpenError struct {
	Path string
	Kind error
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == e.Kind
}

// Skippable はバッチ処理でファイルを飛ばして続けてよい失敗かどうかを返す。
func (e *OpenError) Skippable() bool {
	return e.Kind != ErrIO
}

func corrupt(path string, err error) error {
	return &OpenError{Path: path, Kind: ErrCorruptContainer, Err: err}
}

func unsupported(path string, err error) error {
	return &OpenError{Path: path, Kind: ErrUnsupportedFormat, Err: err}
}

func ioFailure(path string, err error) error {
	return &OpenError{Path: path, Kind: ErrIO, Err: err}
}
