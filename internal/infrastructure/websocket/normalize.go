package websocket

import (
	"github.com/tidwall/gjson"

	"topfeed/internal/domain/model"
)

const serverMessageType = "server_message"

// Rule identifies which envelope shape produced an item collection.
type Rule int

const (
	RuleNone Rule = iota
	RuleServerNestedUpdate
	RuleUpdate
	RuleServerMessage
	RuleSnapshot
	RuleTopLevelKey
	RuleBareArray
)

func (r Rule) String() string {
	switch r {
	case RuleServerNestedUpdate:
		return "server_nested_update"
	case RuleUpdate:
		return "update"
	case RuleServerMessage:
		return "server_message"
	case RuleSnapshot:
		return "snapshot"
	case RuleTopLevelKey:
		return "top_level_key"
	case RuleBareArray:
		return "bare_array"
	default:
		return "none"
	}
}

// Normalize 按固定优先级识别推送消息的外层结构，返回第一条匹配规则取出的 items 数组
// 规则依次为：
//  1. {type:"server_message", data:{type:"<update>", data:{<key>:[...]}}}
//  2. {type:"<update>", data:{<key>:[...]}}
//  3. {type:"server_message", data:[...]} 或 {type:"server_message", data:{<key>:[...]}}
//  4. {type:"<snapshot>", data:[...]}
//  5. {<key>:[...]}
//  6. [...]
//
// 命中某条规则后不再尝试后续规则；取出的值不是数组时整条消息忽略
// ok=false 表示消息应被忽略（包括无法解析的 JSON）
func Normalize(kind model.Kind, payload []byte) (items gjson.Result, rule Rule, ok bool) {
	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, RuleNone, false
	}
	root := gjson.ParseBytes(payload)
	val, rule := match(kind, root)
	if rule == RuleNone || !val.IsArray() {
		return gjson.Result{}, rule, false
	}
	return val, rule, true
}

func match(kind model.Kind, root gjson.Result) (gjson.Result, Rule) {
	isObj := root.IsObject()
	var typ, data gjson.Result
	if isObj {
		typ = field(root, "type")
		data = field(root, "data")
	}

	if isString(typ, serverMessageType) && truthy(data) {
		inner := field(data, "data")
		if isString(field(data, "type"), kind.UpdateType) && truthy(inner) {
			if v := field(inner, kind.Key); truthy(v) {
				return v, RuleServerNestedUpdate
			}
		}
	}

	if isString(typ, kind.UpdateType) && truthy(data) {
		if v := field(data, kind.Key); truthy(v) {
			return v, RuleUpdate
		}
	}

	if isString(typ, serverMessageType) && truthy(data) {
		if data.IsArray() {
			return data, RuleServerMessage
		}
		if v := field(data, kind.Key); v.IsArray() {
			return v, RuleServerMessage
		}
		// matched the envelope but carries nothing for this kind
		return gjson.Result{}, RuleServerMessage
	}

	if isString(typ, kind.SnapshotType) && truthy(data) {
		return data, RuleSnapshot
	}

	if isObj {
		if v := field(root, kind.Key); truthy(v) {
			return v, RuleTopLevelKey
		}
	}

	if root.IsArray() {
		return root, RuleBareArray
	}
	return gjson.Result{}, RuleNone
}

// field looks up a direct member of an object without gjson path syntax.
func field(obj gjson.Result, name string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	var out gjson.Result
	obj.ForEach(func(key, value gjson.Result) bool {
		if key.Str == name {
			out = value
		}
		return true
	})
	return out
}

func isString(r gjson.Result, s string) bool {
	return r.Type == gjson.String && r.Str == s
}

// truthy mirrors the feed's loose checks: missing, null, false, 0 and "" are falsy.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}
