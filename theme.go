package gateway

// ThemeOptions is the palette broadcast to plugins so they render
// consistently with the shell. Values are mode selectors, not CSS.
type ThemeOptions struct {
	Mode         string `json:"mode"`
	HighContrast bool   `json:"highContrast"`
}

const (
	themeModeLight = "light"
	themeModeDark  = "dark"
)

// BuildTheme derives the theme options from the stored preferences.
func BuildTheme(darkMode, highContrast bool) ThemeOptions {
	mode := themeModeLight
	if darkMode {
		mode = themeModeDark
	}
	return ThemeOptions{Mode: mode, HighContrast: highContrast}
}
