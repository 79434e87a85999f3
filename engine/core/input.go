package core

type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
	MouseButtonUnknown
)

// Modifier is a bit set of the modifier keys held while a key event fired.
type Modifier uint8

const (
	ModifierShift Modifier = 1 << iota
	ModifierControl
	ModifierAlt
	ModifierSuper

	ModifierNone Modifier = 0
)

// Key is the backend agnostic key code. Window hosts map their own codes
// into it.
type Key uint16

const (
	KeyUnknown Key = iota
	KeySpace
	KeyApostrophe
	KeyComma
	KeyMinus
	KeyPeriod
	KeySlash
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySemicolon
	KeyEqual
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeyLeftBracket
	KeyBackslash
	KeyRightBracket
	KeyGraveAccent
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyInsert
	KeyDelete
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyCapsLock
	KeyScrollLock
	KeyNumLock
	KeyPrintScreen
	KeyPause
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyLeftShift
	KeyLeftControl
	KeyLeftAlt
	KeyLeftSuper
	KeyRightShift
	KeyRightControl
	KeyRightAlt
	KeyRightSuper
	KeyMenu
	KeyCount
)

// InputCallbacks are dispatched by the window host while polling events.
// Nil members are skipped.
type InputCallbacks struct {
	OnKey         func(key Key, mods Modifier, pressed bool)
	OnCharInput   func(text string)
	OnMouseButton func(button MouseButton, pressed bool)
	OnMouseMove   func(x, y float64)
	OnMouseScroll func(dx, dy float64)
}

func (ic *InputCallbacks) Key(key Key, mods Modifier, pressed bool) {
	if ic != nil && ic.OnKey != nil {
		ic.OnKey(key, mods, pressed)
	}
}

func (ic *InputCallbacks) Char(text string) {
	if ic != nil && ic.OnCharInput != nil {
		ic.OnCharInput(text)
	}
}

func (ic *InputCallbacks) MouseButton(button MouseButton, pressed bool) {
	if ic != nil && ic.OnMouseButton != nil {
		ic.OnMouseButton(button, pressed)
	}
}

func (ic *InputCallbacks) MouseMove(x, y float64) {
	if ic != nil && ic.OnMouseMove != nil {
		ic.OnMouseMove(x, y)
	}
}

func (ic *InputCallbacks) MouseScroll(dx, dy float64) {
	if ic != nil && ic.OnMouseScroll != nil {
		ic.OnMouseScroll(dx, dy)
	}
}
