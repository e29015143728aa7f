package excelmapper

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// convertValue converts a raw cell value to a value of type t.
// nil and empty strings convert to the zero value of t.
func convertValue(raw interface{}, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	if t.Kind() == reflect.Ptr {
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			return reflect.Zero(t), nil
		}
		elem, err := convertValue(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if t == timeType {
		tm, err := toTime(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tm), nil
	}

	s := toString(raw)
	if reflect.PtrTo(t).Implements(textUnmarshalerType) {
		v := reflect.New(t)
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return v.Elem(), nil
	}

	trim := strings.TrimSpace(s)
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		if trim == "" {
			return v, nil
		}
		b, err := parseBool(trim)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if trim == "" {
			return v, nil
		}
		n, err := parseInt(trim)
		if err != nil {
			return reflect.Value{}, err
		}
		if v.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if trim == "" {
			return v, nil
		}
		n, err := parseInt(trim)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < 0 || v.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		v.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		if trim == "" {
			return v, nil
		}
		f, err := strconv.ParseFloat(trim, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	case reflect.Interface:
		if !rv.Type().Implements(t) {
			return reflect.Value{}, fmt.Errorf("%T does not implement %s", raw, t)
		}
		v.Set(rv)
	default:
		if rv.Type().ConvertibleTo(t) {
			return rv.Convert(t), nil
		}
		return reflect.Value{}, fmt.Errorf("unsupported type %s for value %q", t, s)
	}
	return v, nil
}

// cellValue unwraps a field value into something a Cell can store.
func cellValue(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Type() != timeType && v.Kind() == reflect.Struct && v.Type().Implements(textMarshalerType) {
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err == nil {
			return string(b)
		}
	}
	return v.Interface()
}

func toString(raw interface{}) string {
	switch x := raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(raw)
}

func parseInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// numeric cells often come back as "30.0" or "3E+1"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("value %q is not an integer", s)
	}
	return int64(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", s)
}

func toTime(raw interface{}) (time.Time, error) {
	switch x := raw.(type) {
	case time.Time:
		return x, nil
	case float64:
		return excelize.ExcelDateToTime(x, false)
	}

	s := strings.TrimSpace(toString(raw))
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(f, false)
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
