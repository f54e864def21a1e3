package render

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// column is one exported struct field as shown in a table.
type column struct {
	index     int
	name      string
	omitEmpty bool
}

// columnsOf returns the visible columns of struct type t, named by their
// json tag. Fields tagged json:"-" are hidden.
func columnsOf(t reflect.Type) []column {
	cols := make([]column, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{index: i, name: name, omitEmpty: strings.Contains(opts, "omitempty")})
	}
	return cols
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		return writeRows(w, v)
	}
	writeRecord(w, deref(v), data)
	return nil
}

// writeRows prints a header line and one line per element. Headers come
// from the first element.
func writeRows(w *tabwriter.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(w, "(no results)")
		return err
	}

	first := deref(v.Index(0))
	var headers []string
	var cells func(reflect.Value) []string

	switch first.Kind() {
	case reflect.Struct:
		cols := columnsOf(first.Type())
		for _, c := range cols {
			headers = append(headers, c.name)
		}
		cells = func(e reflect.Value) []string {
			row := make([]string, len(cols))
			if e.IsValid() {
				for i, c := range cols {
					row[i] = formatValue(e.Field(c.index))
				}
			}
			return row
		}
	case reflect.Map:
		keys := sortedKeys(first)
		for _, k := range keys {
			headers = append(headers, fmt.Sprint(k.Interface()))
		}
		cells = func(e reflect.Value) []string {
			row := make([]string, len(keys))
			if e.IsValid() {
				for i, k := range keys {
					row[i] = formatValue(e.MapIndex(k))
				}
			}
			return row
		}
	default:
		headers = []string{"value"}
		cells = func(e reflect.Value) []string { return []string{formatValue(e)} }
	}

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for i := range v.Len() {
		fmt.Fprintln(w, strings.Join(cells(deref(v.Index(i))), "\t"))
	}
	return nil
}

// writeRecord prints one "key:\tvalue" line per field or map entry.
// Empty omitempty fields are skipped.
func writeRecord(w *tabwriter.Writer, v reflect.Value, data any) {
	switch v.Kind() {
	case reflect.Struct:
		for _, c := range columnsOf(v.Type()) {
			f := v.Field(c.index)
			if c.omitEmpty && f.IsZero() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", c.name, formatValue(f))
		}
	case reflect.Map:
		for _, k := range sortedKeys(v) {
			fmt.Fprintf(w, "%v:\t%s\n", k.Interface(), formatValue(v.MapIndex(k)))
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
}

// sortedKeys returns the keys of m ordered by their printed form.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	return keys
}

func formatValue(v reflect.Value) string {
	v = deref(v)
	if !v.IsValid() {
		return ""
	}

	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		if v.Kind() == reflect.Array && v.Len() <= 4 {
			parts := make([]string, v.Len())
			for i := range v.Len() {
				parts[i] = formatValue(v.Index(i))
			}
			return "[" + strings.Join(parts, " ") + "]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprint(v.Interface())
	}
}
