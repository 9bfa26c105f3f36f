package model

import (
	"encoding/json"
	"reflect"
	"strings"
)

// fieldIndex maps the json names declared on struct type v to field indexes.
func fieldIndex(v any) map[string]int {
	t := reflect.TypeOf(v)
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		idx[name] = i
	}
	return idx
}

// decodeOpen 逐字段解码 JSON 对象到 dst（结构体指针）
// 未声明的字段和类型不匹配的声明字段都原样放进返回的 extra，对应的类型字段保持零值
// 只有 b 不是 JSON 对象时才返回错误
func decodeOpen(b []byte, dst any, fields map[string]int) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(dst).Elem()

	var extra map[string]json.RawMessage
	for k, raw := range all {
		if i, ok := fields[k]; ok {
			f := rv.Field(i)
			if err := json.Unmarshal(raw, f.Addr().Interface()); err == nil {
				continue
			}
			f.Set(reflect.Zero(f.Type()))
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = raw
	}
	return extra, nil
}

// mergeExtra adds extra members to the encoded object base.
// A declared member wins unless it encoded to "" or null, which is what a
// field left empty by a type mismatch in decodeOpen looks like.
func mergeExtra(base []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return base, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(base, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if cur, ok := all[k]; ok && !emptyJSON(cur) {
			continue
		}
		all[k] = v
	}
	return json.Marshal(all)
}

func emptyJSON(b []byte) bool {
	s := strings.TrimSpace(string(b))
	return s == `""` || s == "null"
}

func isNull(b []byte) bool {
	return strings.TrimSpace(string(b)) == "null"
}
