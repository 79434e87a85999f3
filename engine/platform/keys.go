package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
)

var glfwKeys = map[glfw.Key]core.Key{
	glfw.KeySpace:        core.KeySpace,
	glfw.KeyApostrophe:   core.KeyApostrophe,
	glfw.KeyComma:        core.KeyComma,
	glfw.KeyMinus:        core.KeyMinus,
	glfw.KeyPeriod:       core.KeyPeriod,
	glfw.KeySlash:        core.KeySlash,
	glfw.KeySemicolon:    core.KeySemicolon,
	glfw.KeyEqual:        core.KeyEqual,
	glfw.KeyLeftBracket:  core.KeyLeftBracket,
	glfw.KeyBackslash:    core.KeyBackslash,
	glfw.KeyRightBracket: core.KeyRightBracket,
	glfw.KeyGraveAccent:  core.KeyGraveAccent,
	glfw.KeyEscape:       core.KeyEscape,
	glfw.KeyEnter:        core.KeyEnter,
	glfw.KeyTab:          core.KeyTab,
	glfw.KeyBackspace:    core.KeyBackspace,
	glfw.KeyInsert:       core.KeyInsert,
	glfw.KeyDelete:       core.KeyDelete,
	glfw.KeyRight:        core.KeyRight,
	glfw.KeyLeft:         core.KeyLeft,
	glfw.KeyDown:         core.KeyDown,
	glfw.KeyUp:           core.KeyUp,
	glfw.KeyPageUp:       core.KeyPageUp,
	glfw.KeyPageDown:     core.KeyPageDown,
	glfw.KeyHome:         core.KeyHome,
	glfw.KeyEnd:          core.KeyEnd,
	glfw.KeyCapsLock:     core.KeyCapsLock,
	glfw.KeyScrollLock:   core.KeyScrollLock,
	glfw.KeyNumLock:      core.KeyNumLock,
	glfw.KeyPrintScreen:  core.KeyPrintScreen,
	glfw.KeyPause:        core.KeyPause,
	glfw.KeyLeftShift:    core.KeyLeftShift,
	glfw.KeyLeftControl:  core.KeyLeftControl,
	glfw.KeyLeftAlt:      core.KeyLeftAlt,
	glfw.KeyLeftSuper:    core.KeyLeftSuper,
	glfw.KeyRightShift:   core.KeyRightShift,
	glfw.KeyRightControl: core.KeyRightControl,
	glfw.KeyRightAlt:     core.KeyRightAlt,
	glfw.KeyRightSuper:   core.KeyRightSuper,
	glfw.KeyMenu:         core.KeyMenu,
}

// translateKey maps a GLFW key code to the core enum. Digits, letters and
// function keys are contiguous on both sides.
func translateKey(key glfw.Key) core.Key {
	switch {
	case key >= glfw.Key0 && key <= glfw.Key9:
		return core.Key0 + core.Key(key-glfw.Key0)
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KeyA + core.Key(key-glfw.KeyA)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KeyF1 + core.Key(key-glfw.KeyF1)
	}
	if k, ok := glfwKeys[key]; ok {
		return k
	}
	return core.KeyUnknown
}

func translateModifiers(mods glfw.ModifierKey) core.Modifier {
	m := core.ModifierNone
	if mods&glfw.ModShift != 0 {
		m |= core.ModifierShift
	}
	if mods&glfw.ModControl != 0 {
		m |= core.ModifierControl
	}
	if mods&glfw.ModAlt != 0 {
		m |= core.ModifierAlt
	}
	if mods&glfw.ModSuper != 0 {
		m |= core.ModifierSuper
	}
	return m
}

func translateMouseButton(button glfw.MouseButton) core.MouseButton {
	switch button {
	case glfw.MouseButtonLeft:
		return core.MouseButtonLeft
	case glfw.MouseButtonRight:
		return core.MouseButtonRight
	case glfw.MouseButtonMiddle:
		return core.MouseButtonMiddle
	default:
		return core.MouseButtonUnknown
	}
}
