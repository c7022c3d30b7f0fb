package gateway

import (
	"github.com/google/uuid"
)

// reducer applies actions to state. It never mutates slices in place;
// snapshots handed to subscribers stay stable.
type reducer struct {
	logger Logger
}

func (r *reducer) Apply(s State, a Action) State {
	switch a.Type {
	case ToggleDrawerType:
		s.DrawerOpen = !s.DrawerOpen
		return s

	case ToggleHelpType:
		s.ShowHelp = !s.ShowHelp
		return s

	case SiteLoadingType:
		if loading, ok := a.Payload.(bool); ok {
			s.SiteLoading = loading
		}
		return s

	case AddHelpTourStepsType:
		return r.addHelpSteps(s, a)

	case LoadingAuthType:
		auth := s.Authorisation
		auth.Loading = true
		auth.Generation++
		s.Authorisation = auth
		return s

	case AuthSuccessType:
		return r.applyAuth(s, a, func(auth *SessionState) {
			auth.Loading = false
			auth.FailedToLogin = false
			auth.SignedOutDueToTokenInvalidation = false
		})

	case AuthFailureType:
		return r.applyAuth(s, a, func(auth *SessionState) {
			auth.Loading = false
			auth.FailedToLogin = true
			auth.SignedOutDueToTokenInvalidation = false
			if auth.Provider != nil {
				auth.Provider.SignOut()
			}
		})

	case LoadedAuthType:
		return r.applyAuth(s, a, func(auth *SessionState) {
			auth.Loading = false
		})

	case InvalidateTokenType:
		auth := s.Authorisation
		auth.Loading = false
		auth.FailedToLogin = false
		auth.SignedOutDueToTokenInvalidation = true
		if auth.Provider != nil {
			auth.Provider.SignOut()
		}
		s.Authorisation = auth
		return s

	case SignOutType:
		auth := s.Authorisation
		auth.Loading = false
		auth.FailedToLogin = false
		auth.SignedOutDueToTokenInvalidation = false
		if auth.Provider != nil {
			auth.Provider.SignOut()
		}
		s.Authorisation = auth
		return s

	case LoadAuthProviderType:
		provider, ok := a.Payload.(AuthProvider)
		if !ok || provider == nil {
			r.logger.Error("load auth provider action carried no provider")
			return s
		}
		s.Authorisation = SessionState{
			Provider:   provider,
			Generation: s.Authorisation.Generation,
		}
		return s

	case NotificationType:
		payload, ok := a.Payload.(NotificationPayload)
		if !ok {
			r.logger.Error("notification action carried unexpected payload type %T", a.Payload)
			return s
		}
		notifications := make([]Notification, len(s.Notifications), len(s.Notifications)+1)
		copy(notifications, s.Notifications)
		s.Notifications = append(notifications, Notification{
			ID:       uuid.New(),
			Message:  payload.Message,
			Severity: payload.Severity,
		})
		return s

	case DismissNotificationType:
		payload, ok := a.Payload.(dismissPayload)
		if !ok || payload.Index < 0 || payload.Index >= len(s.Notifications) {
			return s
		}
		notifications := make([]Notification, 0, len(s.Notifications)-1)
		notifications = append(notifications, s.Notifications[:payload.Index]...)
		notifications = append(notifications, s.Notifications[payload.Index+1:]...)
		s.Notifications = notifications
		return s

	case RegisterRouteType:
		return r.registerRoute(s, a)

	case ConfigureStringsType:
		if res, ok := a.Payload.(StringResources); ok {
			s.Res = res
		}
		return s

	case ConfigureFeatureSwitchesType:
		if features, ok := a.Payload.(FeatureSwitches); ok {
			merged := make(FeatureSwitches, len(s.Features)+len(features))
			for k, v := range s.Features {
				merged[k] = v
			}
			for k, v := range features {
				merged[k] = v
			}
			s.Features = merged
		}
		return s

	case ConfigureAnalyticsType:
		if payload, ok := a.Payload.(analyticsPayload); ok {
			s.Analytics = &AnalyticsConfig{ID: payload.ID}
		}
		return s

	case InitialiseAnalyticsType:
		if s.Analytics == nil {
			r.logger.Error("attempted to initialise analytics without analytics configuration - configure analytics before initialising")
			return s
		}
		analytics := *s.Analytics
		analytics.Initialised = true
		s.Analytics = &analytics
		return s

	case RegisterStartURLType:
		if url, ok := a.Payload.(string); ok {
			s.StartURL = url
		}
		return s

	case RegisterHomepageURLType:
		if url, ok := a.Payload.(string); ok {
			s.HomepageURL = url
		}
		return s

	case LoadDarkModePreferenceType:
		if dark, ok := a.Payload.(bool); ok {
			s.DarkMode = dark
		}
		return s

	case LoadHighContrastPreferenceType:
		if on, ok := a.Payload.(bool); ok {
			s.HighContrast = on
		}
		return s

	case LoadMaintenanceStateType:
		if state, ok := a.Payload.(MaintenanceState); ok {
			s.Maintenance = state
		}
		return s

	case LoadScheduledMaintenanceType:
		if state, ok := a.Payload.(MaintenanceState); ok {
			s.ScheduledMaintenance = state
		}
		return s
	}

	return s
}

// applyAuth runs fn against the session unless the action's generation
// is stale, in which case the resolution lost the race to a newer
// attempt and is discarded.
func (r *reducer) applyAuth(s State, a Action, fn func(*SessionState)) State {
	payload, ok := a.Payload.(authPayload)
	if ok && payload.Generation != 0 && payload.Generation != s.Authorisation.Generation {
		r.logger.Debug("discarding stale auth resolution (generation %d, current %d)",
			payload.Generation, s.Authorisation.Generation)
		return s
	}

	auth := s.Authorisation
	fn(&auth)
	s.Authorisation = auth
	return s
}

func (r *reducer) addHelpSteps(s State, a Action) State {
	steps, ok := a.Payload.([]HelpStep)
	if !ok {
		return s
	}

	helpSteps := make([]HelpStep, len(s.HelpSteps), len(s.HelpSteps)+len(steps))
	copy(helpSteps, s.HelpSteps)
	next := State{HelpSteps: helpSteps}

	for _, step := range steps {
		if next.hasHelpStep(step.Target) {
			r.logger.Error("duplicate help step target identified: %s.", step.Target)
			continue
		}
		next.HelpSteps = append(next.HelpSteps, step)
	}

	s.HelpSteps = next.HelpSteps
	return s
}

func (r *reducer) registerRoute(s State, a Action) State {
	payload, ok := a.Payload.(RegisterRoutePayload)
	if !ok {
		r.logger.Error("register route action carried unexpected payload type %T", a.Payload)
		return s
	}

	if s.hasRoute(payload.Link) {
		r.logger.Error("duplicate plugin route rejected: %v", enrich(ErrDuplicateRoute, map[string]any{
			"plugin":      payload.Plugin,
			"link":        payload.Link,
			"displayName": payload.DisplayName,
		}))
		return s
	}

	plugins := make([]PluginRegistration, len(s.Plugins), len(s.Plugins)+1)
	copy(plugins, s.Plugins)
	s.Plugins = append(plugins, payload.Registration())
	return s
}
