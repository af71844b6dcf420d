package hydrate

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are the text forms drivers return timestamps in.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", time.DateTime, time.DateOnly}

// Decode converts hydrated entities into typed values. Fields are matched by
// their mapstructure tag, or case-insensitively by name when untagged;
// nested relations decode into struct, pointer or slice fields. Weak typing
// covers drivers that return numbers and timestamps as text or bytes.
func Decode[T any](entities []Entity) ([]T, error) {
	out := make([]T, 0, len(entities))
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToString,
			stringToTime,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("hydrate: create decoder: %w", err)
	}
	if err := dec.Decode(entities); err != nil {
		return nil, fmt.Errorf("hydrate: decode: %w", err)
	}
	return out, nil
}

// bytesToString turns driver byte slices into text unless the target is
// itself a byte slice.
func bytesToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	b, ok := data.([]byte)
	if !ok || to.Kind() == reflect.Slice || to.Kind() == reflect.Interface {
		return data, nil
	}
	return string(b), nil
}

func stringToTime(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a timestamp", s)
}
