package translation

import (
	"math"
	"strings"

	"github.com/zeusync/xsyncd/internal/core/settings"
)

func BoolToInt(r settings.Reader, schema, key string) (Value, bool) {
	b, ok := r.Bool(schema, key)
	if !ok {
		return Value{}, false
	}
	if b {
		return Value{Kind: KindInt, Int: 1}, true
	}
	return Value{Kind: KindInt, Int: 0}, true
}

func IntToInt(r settings.Reader, schema, key string) (Value, bool) {
	n, ok := r.Int(schema, key)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return Value{}, false
	}
	return Value{Kind: KindInt, Int: int32(n)}, true
}

func StringToString(r settings.Reader, schema, key string) (Value, bool) {
	s, ok := r.String(schema, key)
	if !ok {
		return Value{}, false
	}
	return Value{Kind: KindString, Str: s}, true
}

// ToolbarStyle rewrites the configuration spelling "both_horiz" into the
// "both-horiz" token toolkits expect.
func ToolbarStyle(r settings.Reader, schema, key string) (Value, bool) {
	s, ok := r.String(schema, key)
	if !ok {
		return Value{}, false
	}
	if strings.TrimSpace(s) == "both_horiz" {
		s = "both-horiz"
	}
	return Value{Kind: KindString, Str: s}, true
}
