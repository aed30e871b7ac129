package helper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/totes/constants"
)

// StringSliceToOrderedMap adds each value in s to an ordered map with key and value set to the value in s.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	retval := om.NewOrderedMap()
	for _, v := range s {
		retval.Set(v, v)
	}
	return retval
}

// OrderedMapValuesToStringSlice returns the values found in ordered map o, in insertion order.
// All values are expected to be of type string.
func OrderedMapValuesToStringSlice(o *om.OrderedMap) []string {
	retval := make([]string, 0, o.Len())
	iter := o.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Value.(string))
	}
	return retval
}

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1,f2,f3...' into a slice of string values.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	tokens := strings.Split(s, ",")
	retval := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// ValueToString converts a value scanned from a database into the text written to CSV files.
// Dates without a clock component are written as dates and times of day without a date are written as times
// so values round-trip through the warehouse without spurious differences.
func ValueToString(input interface{}) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32) // 'f' preserves all decimal places without an exponent.
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return TimeToString(v)
	default:
		return fmt.Sprint(v)
	}
}

// TimeToString formats t as a date, a time of day or a date-time depending on which components are set.
func TimeToString(t time.Time) string {
	if t.Year() == 0 && t.Month() == time.January && t.Day() == 1 { // if this is a TIME column...
		return t.Format(constants.TimeFormatTime)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 { // if this is a DATE...
		return t.Format(constants.TimeFormatDate)
	}
	return t.Format(constants.TimeFormatDateTime)
}

// ValuesToStrings converts a row of scanned values using ValueToString.
func ValuesToStrings(src []interface{}) []string {
	retval := make([]string, len(src))
	for i, v := range src {
		retval[i] = ValueToString(v)
	}
	return retval
}

// StringsToInterfaces converts a row of CSV values to bind arguments, where empty strings become NULL.
func StringsToInterfaces(src []string) []interface{} {
	retval := make([]interface{}, len(src))
	for i, v := range src {
		if v == "" {
			retval[i] = nil
		} else {
			retval[i] = v
		}
	}
	return retval
}

// Split returns t, u when s is of the form t c u.
// If not, return s, "".
func Split(s string, c string) (string, string) {
	i := strings.Index(s, c)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(c):]
}
