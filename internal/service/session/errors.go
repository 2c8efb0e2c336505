package session

import "errors"

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrPatientNotFound       = errors.New("patient not found")
	ErrUserNotFound          = errors.New("user not found in this organisation")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrNameRequired          = errors.New("session name is required")
	ErrInvalidKind           = errors.New("kind must be live or virtual")
	ErrInvalidRole           = errors.New("participant role must be facilitator, participant or observer")
	ErrInvalidPanel          = errors.New("unknown visibility panel")
	ErrVRSettingsVirtualOnly = errors.New("vr settings only apply to virtual sessions")
	ErrAlreadyStarted        = errors.New("session has already started")
	ErrNotLive               = errors.New("session is not live")
	ErrEnded                 = errors.New("session has ended")
	ErrInvalidJoinCode       = errors.New("invalid or expired join code")
)
