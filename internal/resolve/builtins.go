package resolve

import (
	"strings"

	"tpack/internal/manifest"
)

// Entities shipped with the Talon runtime. References to them are satisfied
// by the runtime itself and never become package dependencies.

var builtinActionNamespaces = map[string]bool{
	"app": true, "auto_format": true, "auto_insert": true, "browser": true,
	"bytes": true, "clip": true, "code": true, "core": true, "deck": true,
	"dict": true, "dictate": true, "edit": true, "insert": true, "key": true,
	"list": true, "math": true, "menu": true, "migrate": true, "mimic": true,
	"mode": true, "mouse_click": true, "mouse_drag": true, "mouse_move": true,
	"mouse_nudge": true, "mouse_release": true, "mouse_scroll": true,
	"mouse_x": true, "mouse_y": true, "paste": true, "path": true,
	"print": true, "random": true, "set": true, "settings": true, "skip": true,
	"sleep": true, "sound": true, "speech": true, "string": true, "time": true,
	"tracking": true, "tuple": true, "types": true, "win": true,
}

var builtinTags = map[string]bool{
	"browser": true, "terminal": true,
}

var builtinModes = map[string]bool{
	"all": true, "command": true, "dictation": true, "sleep": true,
}

var builtinSettings = map[string]bool{
	"dictate.punctuation": true, "dictate.word_map": true, "hotkey_wait": true,
	"imgui.dark_mode": true, "imgui.scale": true, "insert_wait": true,
	"key_hold": true, "key_wait": true, "paste_wait": true,
	"speech._engine_id": true, "speech._subtitles": true, "speech.debug": true,
	"speech.engine": true, "speech.gain": true, "speech.language": true,
	"speech.latency": true, "speech.microphone": true, "speech.normalize": true,
	"speech.record_all": true, "speech.record_labels": true,
	"speech.record_path": true, "speech.threshold": true, "speech.timeout": true,
	"tracking.zoom_height": true, "tracking.zoom_live": true,
	"tracking.zoom_scale": true, "tracking.zoom_width": true,
}

var builtinCaptures = map[string]bool{
	"digit_string": true, "digits": true, "key": true, "letter": true,
	"modifiers": true, "number": true, "number_signed": true,
	"number_small": true, "number_string": true, "special_key": true,
	"symbol": true,
}

var builtinLists = map[string]bool{
	"digit": true, "letter": true, "modifier": true, "number_meta": true,
	"number_scale": true, "number_sign": true, "number_small": true,
	"special_key": true, "symbol": true,
}

func isBuiltin(kind manifest.Kind, name string) bool {
	switch kind {
	case manifest.KindActions:
		namespace, _, _ := strings.Cut(name, ".")
		return builtinActionNamespaces[namespace]
	case manifest.KindTags:
		return builtinTags[name]
	case manifest.KindModes:
		return builtinModes[name]
	case manifest.KindSettings:
		return builtinSettings[name]
	case manifest.KindCaptures:
		return builtinCaptures[name]
	case manifest.KindLists:
		return builtinLists[name]
	}
	return false
}
