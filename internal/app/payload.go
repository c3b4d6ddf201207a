package app

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridscript/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// DecodePayload parses a JSON object into event fields. An empty string is
// an empty payload.
func DecodePayload(data string) (script.MapPayload, error) {
	if data == "" {
		return script.MapPayload{}, nil
	}
	var fields map[string]any
	if err := sonic.UnmarshalString(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return PayloadFromMap(fields), nil
}

// PayloadFromMap converts decoded JSON fields into event fields. Nested
// arrays and objects are passed on as their JSON text.
func PayloadFromMap(fields map[string]any) script.MapPayload {
	p := make(script.MapPayload, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case nil:
			p[k] = cty.NilVal
		case bool:
			p[k] = cty.BoolVal(v)
		case float64:
			p[k] = cty.NumberFloatVal(v)
		case int:
			p[k] = cty.NumberIntVal(int64(v))
		case int64:
			p[k] = cty.NumberIntVal(v)
		case string:
			p[k] = cty.StringVal(v)
		default:
			text, err := sonic.MarshalString(v)
			if err != nil {
				text = fmt.Sprint(v)
			}
			p[k] = cty.StringVal(text)
		}
	}
	return p
}
