// Package wizard holds the six-step build wizard as a value plus pure
// transition functions, and a Controller that runs the external calls
// between them.
package wizard

import (
	"errors"
	"fmt"

	"twaforge/internal/domain"
)

type Step string

const (
	StepWelcome    Step = "welcome"
	StepURLInput   Step = "url_input"
	StepAppConfig  Step = "app_config"
	StepCompliance Step = "compliance"
	StepBuilding   Step = "building"
	StepExport     Step = "export"
)

// Action names a user-triggered transition.
type Action string

const (
	ActionStart   Action = "start"
	ActionSetURL  Action = "url"
	ActionAnalyze Action = "analyze"
	ActionConfig  Action = "config"
	ActionNext    Action = "next"
	ActionBack    Action = "back"
	ActionBuild   Action = "build"
	ActionRestart Action = "restart"
	ActionResume  Action = "resume"
)

type NoticeKind string

const (
	NoticeValidation NoticeKind = "validation"
	NoticeRejected   NoticeKind = "rejected"
	NoticeService    NoticeKind = "service"
	NoticeBuild      NoticeKind = "build"
)

const (
	msgEmptyURL     = "Please enter a valid URL"
	msgRejected     = "Not a valid PWA"
	msgServiceError = "Something went wrong"
	msgBuildFailed  = "Build process failed"
)

// Notice is an error shown on the current step. It is cleared by the next
// accepted action.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

type State struct {
	Step     Step                `json:"step"`
	URL      string              `json:"url"`
	Metadata *domain.PwaMetadata `json:"metadata,omitempty"`
	Config   domain.AppConfig    `json:"config"`
	Result   *domain.BuildResult `json:"result,omitempty"`
	Notice   *Notice             `json:"notice,omitempty"`
	// Guidance is set while no model-service credential is configured.
	Guidance bool `json:"guidance"`
	Busy     bool `json:"busy"`
}

// New returns a wizard on the Welcome step with the given form defaults.
func New(defaults domain.AppConfig) State {
	return State{Step: StepWelcome, Config: defaults}
}

var (
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrCredentialRequired = errors.New("model service credential required")
	ErrBusy               = errors.New("an operation is already in progress")
)

func invalid(a Action, from Step) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, a, from)
}
