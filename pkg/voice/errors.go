package voice

import (
	"errors"
	"fmt"
)

// Microphone failures. They are environment errors: the command is dropped
// and the user is told how to fix it.
var (
	ErrMicDenied      = errors.New("microphone access denied")
	ErrMicUnavailable = errors.New("no microphone found")
	ErrMicBusy        = errors.New("microphone busy")
)

// RecognitionError is a speech-recognition failure with remediation text.
type RecognitionError struct {
	// Code is the recognizer's error code, e.g. "not-allowed".
	Code        string
	Remediation string
	Err         error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition %s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// MapError converts a recognizer error code. Codes that need no user action
// ("no-speech", "aborted") map to nil.
func MapError(code string) *RecognitionError {
	switch code {
	case "", "no-speech", "aborted":
		return nil
	case "not-allowed", "service-not-allowed":
		return &RecognitionError{
			Code:        code,
			Err:         ErrMicDenied,
			Remediation: "Microphone access was denied. Allow microphone access for this site in your browser settings, then try again.",
		}
	case "audio-capture":
		return &RecognitionError{
			Code:        code,
			Err:         ErrMicUnavailable,
			Remediation: "No microphone was found. Connect a microphone and try again.",
		}
	case "busy", "network":
		return &RecognitionError{
			Code:        code,
			Err:         ErrMicBusy,
			Remediation: "The microphone or speech service is busy. Close other apps using the microphone, check your connection and try again.",
		}
	}
	return &RecognitionError{
		Code:        code,
		Err:         fmt.Errorf("unexpected recognition error"),
		Remediation: "Voice input stopped unexpectedly. Please try again.",
	}
}
