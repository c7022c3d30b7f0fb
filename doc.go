// Package gateway provides the integration layer of a plugin-hosted
// site shell: a message bus between host and plugins, pluggable
// authentication providers, a session state machine, the startup
// configuration sequence, and route authorization gating.
//
// Plugin bus:
//   - Plugins and the host share a single broadcast channel. Messages
//     are typed envelopes under the "scigateway:api:" namespace; the
//     PluginMediator validates inbound envelopes, translates recognized
//     operations into store dispatches, and mirrors broadcastable host
//     actions back out. A malformed or panicking handler is logged and
//     contained, never fatal.
//
// Sessions:
//   - AuthProvider abstracts the backend (JWT, ICAT, Github, anonymous)
//     behind a uniform interface, with optional capabilities (auto
//     login, token refresh, maintenance state) discovered by type
//     assertion. SessionState tracks the resolution of asynchronous
//     authentication, and a generation counter discards responses that
//     arrive after a newer attempt has started.
//
// Startup:
//   - Bootstrapper fetches and validates the settings document, builds
//     the configured provider through ProviderRegistry, restores or
//     auto-establishes a session, and hydrates feature switches,
//     strings, analytics, maintenance, and display preferences. The
//     site loading flag is cleared exactly once, on every path.
//
// Routing:
//   - Decide is the pure route gate: loading states render a
//     placeholder, unauthenticated visitors are redirected to login,
//     admin routes render not-found for non-admin sessions. Gate adds
//     the side effects (referrer persistence, verify-on-mount) and
//     RouteGuard adapts decisions to HTTP middleware.
package gateway
