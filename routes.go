package gateway

import "strings"

// AdminPathPrefix roots the admin-only mount point for plugin routes.
const AdminPathPrefix = "/admin"

// GetPluginRoutes groups registered routes by plugin bundle name. When
// admin is false, admin-only routes are excluded so a plugin whose
// every route requires elevation disappears from the map entirely.
func GetPluginRoutes(plugins []PluginRegistration, admin bool) map[string][]string {
	routes := map[string][]string{}

	for _, p := range plugins {
		if p.Admin && !admin {
			continue
		}
		routes[p.Plugin] = append(routes[p.Plugin], p.Link)
	}

	return routes
}

// RemountTarget reports the plugin that must be remounted when a
// navigation crosses between that plugin's admin and non-admin routes.
// Single-bundle runtimes keep a plugin mounted across routes it owns,
// so the admin boundary transition needs an explicit kick.
func RemountTarget(oldPath, newPath string, plugins []PluginRegistration) (string, bool) {
	oldAdmin := strings.HasPrefix(oldPath, AdminPathPrefix)
	newAdmin := strings.HasPrefix(newPath, AdminPathPrefix)
	if oldAdmin == newAdmin {
		return "", false
	}

	oldPlugin, ok := pluginForPath(oldPath, plugins)
	if !ok {
		return "", false
	}
	newPlugin, ok := pluginForPath(newPath, plugins)
	if !ok || oldPlugin != newPlugin {
		return "", false
	}

	return newPlugin, true
}

func pluginForPath(path string, plugins []PluginRegistration) (string, bool) {
	for _, p := range plugins {
		if p.Link == path {
			return p.Plugin, true
		}
	}
	return "", false
}
