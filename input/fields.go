package input

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HexmosTech/httpchain/reqerr"
)

// FieldTag is the struct tag consulted for field names: `kv:"name,omitempty"` or `kv:"-"`.
const FieldTag = "kv"

var defaultCache = NewFieldCache()

// Fields converts record into ordered name/value pairs using the process-wide cache.
//
// Supported records are structs (and pointers to them), maps with string keys,
// and []Field. Map keys are sorted so the order is stable; struct fields keep
// their declaration order. Slice values in a map (url.Values, http.Header)
// produce one pair per element.
func Fields(record interface{}) ([]Field, error) {
	return defaultCache.Fields(record)
}

// FieldCache memoizes the field layout of struct types. Entries are never evicted.
type FieldCache struct {
	shapes sync.Map // reflect.Type -> []structField
	size   atomic.Int64
}

type structField struct {
	index     []int
	name      string
	omitEmpty bool
}

func NewFieldCache() *FieldCache {
	return &FieldCache{}
}

// Size returns the number of distinct struct types cached so far.
func (c *FieldCache) Size() int {
	return int(c.size.Load())
}

func (c *FieldCache) shape(t reflect.Type) []structField {
	if v, ok := c.shapes.Load(t); ok {
		return v.([]structField)
	}
	v, loaded := c.shapes.LoadOrStore(t, describe(t, nil))
	if !loaded {
		c.size.Add(1)
	}
	return v.([]structField)
}

func describe(t reflect.Type, parent []int) []structField {
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag, hasTag := f.Tag.Lookup(FieldTag)
		if tag == "-" {
			continue
		}
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct {
			fields = append(fields, describe(f.Type, index)...)
			continue
		}
		if f.PkgPath != "" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		fields = append(fields, structField{
			index:     index,
			name:      name,
			omitEmpty: opts == "omitempty",
		})
	}
	return fields
}

func (c *FieldCache) Fields(record interface{}) ([]Field, error) {
	if record == nil {
		return nil, reqerr.Errorf(reqerr.InvalidArgument, "record must not be nil")
	}
	if fields, ok := record.([]Field); ok {
		return append([]Field(nil), fields...), nil
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, reqerr.Errorf(reqerr.InvalidArgument, "record must not be nil")
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return c.structFields(v), nil
	case reflect.Map:
		if v.IsNil() {
			return nil, reqerr.Errorf(reqerr.InvalidArgument, "record must not be nil")
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, reqerr.Errorf(reqerr.InvalidArgument, "map record must have string keys, got %s", v.Type())
		}
		return mapFields(v), nil
	default:
		return nil, reqerr.Errorf(reqerr.InvalidArgument, "unsupported record type %s", v.Type())
	}
}

func (c *FieldCache) structFields(v reflect.Value) []Field {
	shape := c.shape(v.Type())
	fields := make([]Field, 0, len(shape))
	for _, sf := range shape {
		fv := v.FieldByIndex(sf.index)
		if sf.omitEmpty && fv.IsZero() {
			continue
		}
		fields = append(fields, Field{Name: sf.name, Value: Stringify(fv)})
	}
	return fields
}

func mapFields(v reflect.Value) []Field {
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		mv := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
		for mv.Kind() == reflect.Interface && !mv.IsNil() {
			mv = mv.Elem()
		}
		if mv.Kind() == reflect.Slice && mv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < mv.Len(); i++ {
				fields = append(fields, Field{Name: k, Value: Stringify(mv.Index(i))})
			}
			continue
		}
		fields = append(fields, Field{Name: k, Value: Stringify(mv)})
	}
	return fields
}

// Stringify renders v without locale dependence: integers in base 10, floats in
// their shortest round-trip form, times in RFC 3339. Nil pointers become "".
func Stringify(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case time.Time:
			return x.Format(time.RFC3339)
		case encoding.TextMarshaler:
			if b, err := x.MarshalText(); err == nil {
				return string(b)
			}
		case fmt.Stringer:
			return x.String()
		}
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
	}
	if v.CanInterface() {
		return fmt.Sprint(v.Interface())
	}
	return ""
}
