package markup

import "strings"

// HookPrefixes mark [[...]] targets that embed media, UI strings or other
// documents instead of linking to an article.
var HookPrefixes = []string{
	"Image:",
	"Video:",
	"V:",
	"Button:",
	"UI:",
	"Template:",
	"T:",
	"Include:",
	"I:",
}

// IsHookTarget reports whether a link target starts with a hook prefix (case-insensitive)
func IsHookTarget(target string) bool {
	target = strings.TrimSpace(target)
	for _, prefix := range HookPrefixes {
		if len(target) >= len(prefix) && strings.EqualFold(target[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}
