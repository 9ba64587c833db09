package transcriber

import (
	"errors"
	"fmt"
)

// Kind classifies why a transcription did not produce a result.
type Kind int

const (
	KindGenericFailure Kind = iota
	KindLaunchFailed
	KindModelNotFound
	KindDeviceError
	KindTimeout
	KindInvalidInput
	KindParseError
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindGenericFailure:
		return "generic-failure"
	case KindLaunchFailed:
		return "launch-failed"
	case KindModelNotFound:
		return "model-not-found"
	case KindDeviceError:
		return "device-error"
	case KindTimeout:
		return "transcription-timeout"
	case KindInvalidInput:
		return "invalid-input"
	case KindParseError:
		return "parse-error"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// kindForExitCode maps the tool's documented exit codes.
func kindForExitCode(code int) Kind {
	switch code {
	case 2:
		return KindModelNotFound
	case 3:
		return KindDeviceError
	case 4:
		return KindTimeout
	case 5:
		return KindInvalidInput
	default:
		return KindGenericFailure
	}
}

// Error is the only error type Transcribe returns.
type Error struct {
	Kind     Kind
	ExitCode int
	Stderr   string
	// Raw holds stdout when it could not be parsed.
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "transcription error"
	}
	msg := "transcription failed: " + e.Kind.String()
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf reports the Kind carried by err, or KindGenericFailure when err is
// not a transcription error.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindGenericFailure
}

// IsKind reports whether err is a transcription error of kind k.
func IsKind(err error, k Kind) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == k
}
