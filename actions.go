package gateway

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// PluginAPIPrefix namespaces every message type exchanged with plugins.
// Envelopes outside the prefix are logged and dropped.
const PluginAPIPrefix = "scigateway:api:"

// Plugin API message types, inbound and outbound.
const (
	NotificationType          = PluginAPIPrefix + "notification"
	RegisterRouteType         = PluginAPIPrefix + "register_route"
	InvalidateTokenType       = PluginAPIPrefix + "invalidate_token"
	RequestPluginRerenderType = PluginAPIPrefix + "plugin_rerender"
	SendThemeOptionsType      = PluginAPIPrefix + "send_themeoptions"
	RequestPluginRemountType  = PluginAPIPrefix + "plugin_remount"
)

// Host-internal action types.
const (
	SignOutType                    = "scigateway:signout"
	AuthSuccessType                = "scigateway:auth_success"
	AuthFailureType                = "scigateway:auth_failure"
	LoadingAuthType                = "scigateway:loading_auth"
	LoadedAuthType                 = "scigateway:loaded_auth"
	LoadAuthProviderType           = "scigateway:load_auth_provider"
	ConfigureStringsType           = "scigateway:configure_strings"
	ConfigureFeatureSwitchesType   = "scigateway:configure_feature_switches"
	ConfigureAnalyticsType         = "scigateway:configure_analytics"
	InitialiseAnalyticsType        = "scigateway:initialise_analytics"
	DismissNotificationType        = "scigateway:dismiss_notification"
	ToggleDrawerType               = "scigateway:toggle_drawer"
	ToggleHelpType                 = "scigateway:toggle_help"
	AddHelpTourStepsType           = "scigateway:add_help_tour_steps"
	SiteLoadingType                = "scigateway:site_loading_update"
	RegisterStartURLType           = "scigateway:register_start_url"
	RegisterHomepageURLType        = "scigateway:register_homepage_url"
	LoadDarkModePreferenceType     = "scigateway:load_dark_mode"
	LoadHighContrastPreferenceType = "scigateway:load_high_contrast_mode"
	LoadMaintenanceStateType       = "scigateway:load_maintenance_state"
	LoadScheduledMaintenanceType   = "scigateway:load_scheduled_maintenance_state"
	LocationChangeType             = "scigateway:location_change"
)

// Action is the unit of state mutation. Every change to session state
// or the plugin registry flows through Store.Dispatch as an Action.
type Action struct {
	Type    string
	Payload any
}

// broadcaster is implemented by payloads that must be mirrored to the
// plugin bus when dispatched by the host.
type broadcaster interface {
	Broadcasts() bool
}

// actionBroadcasts reports whether the action's payload carries the
// broadcast flag, either as a typed payload or a raw envelope map.
func actionBroadcasts(a Action) bool {
	switch p := a.Payload.(type) {
	case broadcaster:
		return p.Broadcasts()
	case map[string]any:
		b, ok := p["broadcast"].(bool)
		return ok && b
	}
	return false
}

// NotificationPayload is the payload of NotificationType messages.
type NotificationPayload struct {
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Broadcast bool   `json:"broadcast,omitempty"`
}

func (p NotificationPayload) Broadcasts() bool { return p.Broadcast }

func (p NotificationPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Message, validation.Required),
	)
}

// HelpStep is a single help-tour entry anchored to a DOM target.
type HelpStep struct {
	Target  string `json:"target"`
	Content string `json:"content"`
}

// RegisterRoutePayload is the payload of RegisterRouteType messages.
type RegisterRoutePayload struct {
	Section     string     `json:"section"`
	Link        string     `json:"link"`
	Plugin      string     `json:"plugin"`
	DisplayName string     `json:"displayName"`
	Order       int        `json:"order"`
	HelpText    string     `json:"helpText,omitempty"`
	HelpSteps   []HelpStep `json:"helpSteps,omitempty"`
	Admin       bool       `json:"admin,omitempty"`
}

func (p RegisterRoutePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Section, validation.Required),
		validation.Field(&p.Link, validation.Required),
		validation.Field(&p.Plugin, validation.Required),
		validation.Field(&p.DisplayName, validation.Required),
	)
}

// Registration returns the registry entry for the payload.
func (p RegisterRoutePayload) Registration() PluginRegistration {
	return PluginRegistration{
		Section:     p.Section,
		Link:        p.Link,
		Plugin:      p.Plugin,
		DisplayName: p.DisplayName,
		Order:       p.Order,
		HelpText:    p.HelpText,
		Admin:       p.Admin,
	}
}

// TourSteps returns the help steps a registration contributes: explicit
// steps when present, otherwise a single step synthesized from the
// help text, anchored to the plugin link element.
func (p RegisterRoutePayload) TourSteps() []HelpStep {
	if len(p.HelpSteps) > 0 {
		return p.HelpSteps
	}
	if p.HelpText == "" {
		return nil
	}
	target := "#plugin-link-" + strings.ReplaceAll(p.Link, "/", "-")
	return []HelpStep{{Target: target, Content: p.HelpText}}
}

type rerenderPayload struct{}

func (rerenderPayload) Broadcasts() bool { return true }

type themeOptionsPayload struct {
	Theme ThemeOptions `json:"theme"`
}

func (themeOptionsPayload) Broadcasts() bool { return true }

type authPayload struct {
	Generation uint64
}

type dismissPayload struct {
	Index int
}

type analyticsPayload struct {
	ID string
}

type locationPayload struct {
	Path   string
	Search string
	State  map[string]any
}

type remountPayload struct {
	Plugin string `json:"plugin"`
}

func (remountPayload) Broadcasts() bool { return true }

// Notification is a host-side notification record. The id exists so
// view layers can key entries stably; dismissal is by index.
type Notification struct {
	ID       uuid.UUID `json:"id"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
}

// Action constructors. These mirror the dispatch surface the reducers
// and middleware understand; anything else is passed through untouched.

func RequestPluginRerender() Action {
	return Action{Type: RequestPluginRerenderType, Payload: rerenderPayload{}}
}

func SendThemeOptions(theme ThemeOptions) Action {
	return Action{Type: SendThemeOptionsType, Payload: themeOptionsPayload{Theme: theme}}
}

func Authorised(generation uint64) Action {
	return Action{Type: AuthSuccessType, Payload: authPayload{Generation: generation}}
}

func Unauthorised(generation uint64) Action {
	return Action{Type: AuthFailureType, Payload: authPayload{Generation: generation}}
}

func LoadingAuthentication() Action {
	return Action{Type: LoadingAuthType}
}

func LoadedAuthentication(generation uint64) Action {
	return Action{Type: LoadedAuthType, Payload: authPayload{Generation: generation}}
}

func InvalidToken() Action {
	return Action{Type: InvalidateTokenType}
}

func SignOut() Action {
	return Action{Type: SignOutType}
}

// LoadAuthProvider replaces the active provider. The instance is
// resolved through the ProviderRegistry beforehand so an unknown
// mnemonic is a checked error at configuration load, not here.
func LoadAuthProvider(provider AuthProvider) Action {
	return Action{Type: LoadAuthProviderType, Payload: provider}
}

func ConfigureStrings(res StringResources) Action {
	return Action{Type: ConfigureStringsType, Payload: res}
}

func LoadFeatureSwitches(features FeatureSwitches) Action {
	return Action{Type: ConfigureFeatureSwitchesType, Payload: features}
}

func ConfigureAnalytics(id string) Action {
	return Action{Type: ConfigureAnalyticsType, Payload: analyticsPayload{ID: id}}
}

func InitialiseAnalytics() Action {
	return Action{Type: InitialiseAnalyticsType}
}

func DismissNotification(index int) Action {
	return Action{Type: DismissNotificationType, Payload: dismissPayload{Index: index}}
}

func ToggleDrawer() Action {
	return Action{Type: ToggleDrawerType}
}

func ToggleHelp() Action {
	return Action{Type: ToggleHelpType}
}

func AddHelpTourSteps(steps []HelpStep) Action {
	return Action{Type: AddHelpTourStepsType, Payload: steps}
}

func SiteLoadingUpdate(loading bool) Action {
	return Action{Type: SiteLoadingType, Payload: loading}
}

func RegisterStartURL(url string) Action {
	return Action{Type: RegisterStartURLType, Payload: url}
}

func RegisterHomepageURL(url string) Action {
	return Action{Type: RegisterHomepageURLType, Payload: url}
}

func LoadDarkModePreference(dark bool) Action {
	return Action{Type: LoadDarkModePreferenceType, Payload: dark}
}

func LoadHighContrastModePreference(on bool) Action {
	return Action{Type: LoadHighContrastPreferenceType, Payload: on}
}

func LoadMaintenanceState(state MaintenanceState) Action {
	return Action{Type: LoadMaintenanceStateType, Payload: state}
}

func LoadScheduledMaintenanceState(state MaintenanceState) Action {
	return Action{Type: LoadScheduledMaintenanceType, Payload: state}
}

func LocationChange(path, search string, state map[string]any) Action {
	return Action{Type: LocationChangeType, Payload: locationPayload{Path: path, Search: search, State: state}}
}

func RequestPluginRemount(plugin string) Action {
	return Action{Type: RequestPluginRemountType, Payload: remountPayload{Plugin: plugin}}
}

func PluginNotification(message, severity string) Action {
	return Action{Type: NotificationType, Payload: NotificationPayload{Message: message, Severity: severity}}
}

// BroadcastNotification is a notification mirrored to every plugin as
// well as the host.
func BroadcastNotification(message, severity string) Action {
	return Action{Type: NotificationType, Payload: NotificationPayload{Message: message, Severity: severity, Broadcast: true}}
}
