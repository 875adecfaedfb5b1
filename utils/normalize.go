package utils

import (
	"reflect"
	"strings"
)

// TrimStrings trims every string and non-nil *string field of the struct dto
// points to. Slices of structs (and pointers to them) are walked as well, so
// nested line items are trimmed with their parent. Numbers are left untouched.
func TrimStrings(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	trimValue(v.Elem())
}

func trimValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			trimValue(v.Elem())
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(strings.TrimSpace(v.String()))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				trimValue(v.Field(i))
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			trimValue(v.Index(i))
		}
	}
}
