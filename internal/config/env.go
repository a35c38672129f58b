package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// envLookup matches os.LookupEnv so tests can substitute a map
type envLookup func(key string) (string, bool)

// processStructFields overrides fields tagged `env:"NAME"` from the process
// environment, descending into nested structs.
func processStructFields(s interface{}) error {
	return applyEnv(reflect.ValueOf(s), os.LookupEnv)
}

// applyEnv walks v and collects every variable that failed to parse
func applyEnv(v reflect.Value, lookup envLookup) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var errs []error
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyEnv(field.Addr(), lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(name)
		if !ok {
			continue
		}

		if err := setField(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", name, meta.Name, err))
		}
	}

	return errors.Join(errs...)
}

// setField parses raw into the field's kind. String slices are comma
// separated with blanks dropped; an empty value clears the list.
func setField(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return errors.New("field cannot be set")
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(raw)

	case field.CanInt():
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		items := []string{}
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}

	return nil
}
