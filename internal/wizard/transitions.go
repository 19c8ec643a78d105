package wizard

import (
	"errors"
	"strings"

	"twaforge/internal/domain"
)

// ConfigPatch carries the form fields a user changed. Nil fields are left
// as they are.
type ConfigPatch struct {
	AppName     *string             `json:"appName,omitempty"`
	PackageName *string             `json:"packageName,omitempty"`
	VersionName *string             `json:"versionName,omitempty"`
	VersionCode *int                `json:"versionCode,omitempty"`
	Orientation *domain.Orientation `json:"orientation,omitempty"`
	MinSdk      *int                `json:"minSdk,omitempty"`
	IconURL     *string             `json:"iconUrl,omitempty"`
	SplashColor *string             `json:"splashColor,omitempty"`
}

func (p ConfigPatch) apply(c domain.AppConfig) domain.AppConfig {
	if p.AppName != nil {
		c.AppName = *p.AppName
	}
	if p.PackageName != nil {
		c.PackageName = *p.PackageName
	}
	if p.VersionName != nil {
		c.VersionName = *p.VersionName
	}
	if p.VersionCode != nil {
		c.VersionCode = *p.VersionCode
	}
	if p.Orientation != nil {
		c.Orientation = *p.Orientation
	}
	if p.MinSdk != nil {
		c.MinSdk = *p.MinSdk
	}
	if p.IconURL != nil {
		c.IconURL = *p.IconURL
	}
	if p.SplashColor != nil {
		c.SplashColor = *p.SplashColor
	}
	return c
}

// guard applies the checks shared by every user-triggered action.
func guard(s State) error {
	if s.Guidance {
		return ErrCredentialRequired
	}
	if s.Busy {
		return ErrBusy
	}
	return nil
}

func Start(s State) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepWelcome {
		return s, invalid(ActionStart, s.Step)
	}
	s.Step = StepURLInput
	s.Notice = nil
	return s, nil
}

func SetURL(s State, url string) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepURLInput {
		return s, invalid(ActionSetURL, s.Step)
	}
	s.URL = url
	s.Notice = nil
	return s, nil
}

// BeginAnalysis marks the state busy when an analyzer call should be made.
// An empty URL instead yields a validation notice and no call.
func BeginAnalysis(s State) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepURLInput {
		return s, invalid(ActionAnalyze, s.Step)
	}
	if strings.TrimSpace(s.URL) == "" {
		s.Notice = &Notice{Kind: NoticeValidation, Message: msgEmptyURL}
		return s, nil
	}
	s.URL = strings.TrimSpace(s.URL)
	s.Notice = nil
	s.Busy = true
	return s, nil
}

// CompleteAnalysis folds the analyzer outcome into the state.
func CompleteAnalysis(s State, meta domain.PwaMetadata, callErr error) (State, error) {
	if s.Step != StepURLInput || !s.Busy {
		return s, invalid(ActionAnalyze, s.Step)
	}
	s.Busy = false
	switch {
	case errors.Is(callErr, domain.ErrMissingCredential):
		s.Guidance = true
		s.Notice = nil
	case callErr != nil:
		s.Notice = &Notice{Kind: NoticeService, Message: msgServiceError}
	case !meta.IsValid:
		s.Notice = &Notice{Kind: NoticeRejected, Message: msgRejected}
	default:
		m := meta
		s.Metadata = &m
		s.Config = s.Config.Seed(meta)
		s.Notice = nil
		s.Step = StepAppConfig
	}
	return s, nil
}

func UpdateConfig(s State, patch ConfigPatch) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepAppConfig {
		return s, invalid(ActionConfig, s.Step)
	}
	s.Config = patch.apply(s.Config)
	s.Notice = nil
	return s, nil
}

func Next(s State) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepAppConfig {
		return s, invalid(ActionNext, s.Step)
	}
	s.Step = StepCompliance
	s.Notice = nil
	return s, nil
}

// Back keeps everything the user entered.
func Back(s State) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	switch s.Step {
	case StepAppConfig:
		s.Step = StepURLInput
	case StepCompliance:
		s.Step = StepAppConfig
	default:
		return s, invalid(ActionBack, s.Step)
	}
	s.Notice = nil
	return s, nil
}

func BeginBuild(s State) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepCompliance || s.Metadata == nil {
		return s, invalid(ActionBuild, s.Step)
	}
	s.Step = StepBuilding
	s.Notice = nil
	s.Busy = true
	return s, nil
}

// CompleteBuild leaves the form untouched on failure.
func CompleteBuild(s State, res domain.BuildResult, callErr error) (State, error) {
	if s.Step != StepBuilding {
		return s, invalid(ActionBuild, s.Step)
	}
	s.Busy = false
	switch {
	case errors.Is(callErr, domain.ErrMissingCredential):
		s.Step = StepAppConfig
		s.Guidance = true
	case callErr != nil:
		s.Step = StepAppConfig
		s.Notice = &Notice{Kind: NoticeBuild, Message: msgBuildFailed}
	default:
		r := res
		s.Result = &r
		s.Step = StepExport
	}
	return s, nil
}

// Abandon clears a busy flag whose call will never complete, e.g. after the
// process handling it went away. A stranded build returns to Compliance.
func Abandon(s State) State {
	if !s.Busy {
		return s
	}
	s.Busy = false
	if s.Step == StepBuilding {
		s.Step = StepCompliance
	}
	return s
}

// Restart returns to Welcome with a fresh form. History is not part of the
// state and is kept.
func Restart(s State, defaults domain.AppConfig) (State, error) {
	if err := guard(s); err != nil {
		return s, err
	}
	if s.Step != StepExport {
		return s, invalid(ActionRestart, s.Step)
	}
	return New(defaults), nil
}

// Resume leaves guidance once a credential is available; otherwise it
// reports that one is still required.
func Resume(s State, haveCredential bool) (State, error) {
	if !s.Guidance {
		return s, invalid(ActionResume, s.Step)
	}
	if !haveCredential {
		return s, ErrCredentialRequired
	}
	s.Guidance = false
	return s, nil
}

// Allowed reports whether a user action would be accepted from s. Empty-URL
// analysis counts as allowed since it is answered with a notice.
func Allowed(s State, a Action) bool {
	if a == ActionResume {
		return s.Guidance
	}
	if guard(s) != nil {
		return false
	}
	switch a {
	case ActionStart:
		return s.Step == StepWelcome
	case ActionSetURL, ActionAnalyze:
		return s.Step == StepURLInput
	case ActionConfig, ActionNext:
		return s.Step == StepAppConfig
	case ActionBack:
		return s.Step == StepAppConfig || s.Step == StepCompliance
	case ActionBuild:
		return s.Step == StepCompliance && s.Metadata != nil
	case ActionRestart:
		return s.Step == StepExport
	}
	return false
}
