package settings

// Schema identifiers and the keys the daemon reads from them.
const (
	SchemaXSettings  = "org.zeusync.settings-daemon.plugins.xsettings"
	KeyScalingFactor = "scaling-factor"
	KeyDPI           = "dpi"

	SchemaFontRendering = "org.zeusync.font-rendering"
	KeyAntialiasing     = "antialiasing"
	KeyHinting          = "hinting"
	KeyRGBAOrder        = "rgba-order"

	SchemaMouse      = "org.zeusync.peripherals-mouse"
	KeyCursorTheme   = "cursor-theme"
	KeyCursorSize    = "cursor-size"
	KeyDoubleClick   = "double-click"
	KeyDragThreshold = "drag-threshold"

	SchemaInterface = "org.zeusync.interface"
	SchemaSound     = "org.zeusync.sound"
	SchemaWM        = "org.zeusync.wm.preferences"

	SchemaDesktop       = "org.zeusync.desktop"
	KeyShowDesktopIcons = "show-desktop-icons"
)
