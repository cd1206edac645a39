package protocol

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// AckMode tells how the device acknowledges a set command.
type AckMode int

const (
	// ReplyEcho: the device answers the set with the applied value.
	ReplyEcho AckMode = iota
	// ReplyReadback: the device stays silent; the value is read back with the get command.
	ReplyReadback
	// ReplyNone: the device stays silent and nothing can be read back.
	ReplyNone
)

// Range is an inclusive numeric interval.
type Range struct {
	Min, Max float64
}

func (r Range) contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(r.Min), formatBound(r.Max))
}

func formatBound(v float64) string {
	if math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// EnumItem maps a device code to a caller facing label.
type EnumItem struct {
	Code  string
	Label string
}

// Operation describes one device quantity: its wire commands, reply grammar and value codec.
//
// GetCommand is sent verbatim. SetCommand is a fmt template with exactly one
// verb: %s takes the canonical text encoding, %d an integer (Int, Bool), and
// %f/%g/%e a float. A reply is Prefix, then the value, then Unit.
type Operation struct {
	Name        string
	Description string
	Kind        Kind

	GetCommand string
	SetCommand string
	SetReply   AckMode

	Prefix string
	Unit   string

	Range     *Range
	Enum      []EnumItem
	Precision int     // decimals rendered for KindFloat
	Tolerance float64 // accepted |applied-requested|; half a Precision step when zero
}

// Readable reports whether the operation has a get command.
func (op *Operation) Readable() bool { return op.GetCommand != "" }

// Writable reports whether the operation has a set command.
func (op *Operation) Writable() bool { return op.SetCommand != "" }

var verbPattern = regexp.MustCompile(`%(\.\d+)?[sdfgev]`)

// setVerb returns the single verb character of SetCommand.
func (op *Operation) setVerb() (byte, error) {
	stripped := strings.ReplaceAll(op.SetCommand, "%%", "")
	verbs := verbPattern.FindAllString(stripped, -1)
	if len(verbs) != 1 || strings.Count(stripped, "%") != 1 {
		return 0, fmt.Errorf("set command %q must hold exactly one verb", op.SetCommand)
	}
	return verbs[0][len(verbs[0])-1], nil
}

func (op *Operation) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidOperation, op.Name, fmt.Sprintf(format, args...))
	}

	if op.Name == "" || strings.ContainsAny(op.Name, " \t") || op.Name != strings.ToLower(op.Name) {
		return invalid("name must be a non-empty lower case word")
	}
	if op.Kind < KindInt || op.Kind > KindBool {
		return invalid("unknown kind %d", op.Kind)
	}
	if !op.Readable() && !op.Writable() {
		return invalid("needs a get or a set command")
	}
	if strings.ContainsAny(op.GetCommand+op.SetCommand, "\r\n") {
		return invalid("commands must not contain line terminators")
	}

	if op.Writable() {
		verb, err := op.setVerb()
		if err != nil {
			return invalid("%v", err)
		}
		switch verb {
		case 's', 'v':
		case 'd':
			if op.Kind != KindInt && op.Kind != KindBool {
				return invalid("%%d needs an int or bool operation")
			}
		default:
			if op.Kind != KindFloat {
				return invalid("%%%c needs a float operation", verb)
			}
		}
		switch op.SetReply {
		case ReplyEcho, ReplyNone:
		case ReplyReadback:
			if !op.Readable() {
				return invalid("read back needs a get command")
			}
		default:
			return invalid("unknown set reply mode %d", op.SetReply)
		}
	}

	if op.Range != nil {
		if op.Kind != KindInt && op.Kind != KindFloat {
			return invalid("range only applies to numeric operations")
		}
		if math.IsNaN(op.Range.Min) || math.IsNaN(op.Range.Max) || op.Range.Min > op.Range.Max {
			return invalid("bad range %s", op.Range)
		}
	}

	if op.Kind == KindEnum {
		if len(op.Enum) == 0 {
			return invalid("enum operation without items")
		}
		codes := map[string]bool{}
		labels := map[string]bool{}
		for _, item := range op.Enum {
			if item.Code == "" || item.Label == "" {
				return invalid("enum item needs code and label")
			}
			if codes[item.Code] || labels[strings.ToLower(item.Label)] {
				return invalid("duplicate enum item %q/%q", item.Code, item.Label)
			}
			codes[item.Code] = true
			labels[strings.ToLower(item.Label)] = true
		}
	} else if len(op.Enum) > 0 {
		return invalid("enum items on a %s operation", op.Kind)
	}

	if op.Precision < 0 || (op.Precision > 0 && op.Kind != KindFloat) {
		return invalid("precision only applies to float operations")
	}
	if op.Tolerance < 0 || math.IsNaN(op.Tolerance) {
		return invalid("negative tolerance")
	}
	return nil
}

// tolerance returns the accepted distance between requested and applied values.
func (op *Operation) tolerance() float64 {
	if op.Tolerance > 0 {
		return op.Tolerance
	}
	if op.Kind == KindFloat {
		// half a display step, plus slack for binary rounding
		return 0.5*math.Pow10(-op.Precision) + 1e-9
	}
	return 0
}

// coerce converts a caller value into a Value of the operation's kind and
// checks it against the declared range or enum set.
func (op *Operation) coerce(raw any) (Value, error) {
	reject := func(reason string) error {
		return &ValueOutOfRangeError{Name: op.Name, Value: raw, Reason: reason}
	}

	var v Value
	switch op.Kind {
	case KindInt:
		n, ok := toInt(raw)
		if !ok {
			return Value{}, reject("not an integer")
		}
		v = IntValue(n)
	case KindFloat:
		f, ok := toFloat(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, reject("not a finite number")
		}
		// range applies to the requested value, before rounding to Precision
		if op.Range != nil && !op.Range.contains(f) {
			return Value{}, reject("outside " + op.Range.String())
		}
		v = FloatValue(roundTo(f, op.Precision))
	case KindBool:
		b, ok := toBool(raw)
		if !ok {
			return Value{}, reject("not a boolean")
		}
		v = BoolValue(b)
	case KindEnum:
		item, ok := op.enumItem(raw)
		if !ok {
			return Value{}, reject("not one of " + op.enumLabels())
		}
		v = EnumValue(item)
	}

	if op.Range != nil && !op.Range.contains(v.Number()) {
		return Value{}, reject("outside " + op.Range.String())
	}
	return v, nil
}

// render builds the set command line for v.
func (op *Operation) render(v Value) string {
	verb, _ := op.setVerb()
	var arg any
	switch verb {
	case 'd':
		if v.Kind == KindBool {
			arg = boolInt(v.Bool)
		} else {
			arg = v.Int
		}
	case 'f', 'g', 'e':
		arg = v.Float
	default:
		arg = op.encode(v)
	}
	return fmt.Sprintf(op.SetCommand, arg)
}

// encode returns the canonical wire text of v.
func (op *Operation) encode(v Value) string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', op.Precision, 64)
	case KindBool:
		return strconv.Itoa(boolInt(v.Bool))
	default:
		return v.Code
	}
}

// matches reports whether the device applied the requested value.
func (op *Operation) matches(requested, applied Value) bool {
	switch op.Kind {
	case KindInt, KindFloat:
		return math.Abs(requested.Number()-applied.Number()) <= op.tolerance()
	case KindBool:
		return requested.Bool == applied.Bool
	default:
		return requested.Code == applied.Code
	}
}

func (op *Operation) enumItem(raw any) (EnumItem, bool) {
	var s string
	switch x := raw.(type) {
	case string:
		s = strings.TrimSpace(x)
	case EnumItem:
		s = x.Code
	case Value:
		s = x.Code
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(raw)
	}
	for _, item := range op.Enum {
		if strings.EqualFold(item.Label, s) || item.Code == s {
			return item, true
		}
	}
	return EnumItem{}, false
}

func (op *Operation) enumLabels() string {
	labels := make([]string, 0, len(op.Enum))
	for _, item := range op.Enum {
		labels = append(labels, item.Label)
	}
	return strings.Join(labels, ", ")
}

func toInt(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), x <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case Value:
		if x.Kind == KindInt {
			return x.Int, true
		}
		if x.Kind == KindFloat {
			return floatToInt(x.Float)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case Value:
		if x.Kind == KindInt || x.Kind == KindFloat {
			return x.Number(), true
		}
		return 0, false
	}
	if n, ok := toInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}

func toBool(raw any) (bool, bool) {
	switch x := raw.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "on", "yes":
			return true, true
		case "0", "false", "off", "no":
			return false, true
		}
	case Value:
		if x.Kind == KindBool {
			return x.Bool, true
		}
	default:
		if n, ok := toInt(raw); ok && (n == 0 || n == 1) {
			return n == 1, true
		}
	}
	return false, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func roundTo(f float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(f*p) / p
}
