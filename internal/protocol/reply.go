package protocol

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	tokenPattern  = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)
	// ERR 2 value out of range / ERROR:3 busy / ERR
	deviceErrPattern = regexp.MustCompile(`^(?i:ERR(?:OR)?)(?:[\s:]+(\d+))?(?:[\s:]+(.*))?$`)
)

// deviceFaults maps device error codes onto fault kinds. Codes not listed
// are reported as FaultDeviceError.
var deviceFaults = map[string]FaultKind{
	"1": FaultInvalidCommand,
	"2": FaultDeviceRange,
	"3": FaultBusy,
}

// parseReply checks raw against the reply grammar of op and returns the bare payload.
func (op *Operation) parseReply(command, raw string) (string, error) {
	fault := func(kind FaultKind, detail string) error {
		return &ProtocolError{Op: op.Name, Command: command, Raw: raw, Fault: kind, Detail: detail}
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fault(FaultEmpty, "")
	}

	if m := deviceErrPattern.FindStringSubmatch(s); m != nil {
		kind, ok := deviceFaults[m[1]]
		if !ok {
			kind = FaultDeviceError
		}
		return "", &ProtocolError{
			Op: op.Name, Command: command, Raw: raw,
			Fault: kind, Code: m[1], Detail: strings.TrimSpace(m[2]),
		}
	}

	if op.Prefix != "" {
		rest, ok := strings.CutPrefix(s, op.Prefix)
		if !ok {
			return "", fault(FaultPrefix, "want prefix "+strconv.Quote(op.Prefix))
		}
		s = strings.TrimSpace(rest)
	}

	if op.Unit != "" {
		rest, ok := strings.CutSuffix(s, op.Unit)
		if !ok {
			return "", fault(FaultUnit, "want unit "+strconv.Quote(op.Unit))
		}
		s = strings.TrimSpace(rest)
	}

	switch op.Kind {
	case KindInt, KindFloat:
		if !numberPattern.MatchString(s) {
			return "", fault(FaultMalformed, "payload is not numeric")
		}
	default:
		if !tokenPattern.MatchString(s) {
			return "", fault(FaultMalformed, "payload is not a single token")
		}
	}
	return s, nil
}

// decode maps a grammatical payload onto a Value of the operation's kind.
func (op *Operation) decode(payload string) (Value, error) {
	fail := func(reason string) error {
		return &DecodeError{Op: op.Name, Payload: payload, Reason: reason}
	}

	var v Value
	switch op.Kind {
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimPrefix(payload, "+"), 10, 64)
		if err != nil {
			// integral values are sometimes sent as "3.0"
			f, ferr := strconv.ParseFloat(payload, 64)
			i, ok := floatToInt(f)
			if ferr != nil || !ok {
				return Value{}, fail("not an integer")
			}
			n = i
		}
		v = IntValue(n)
	case KindFloat:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil || math.IsInf(f, 0) {
			return Value{}, fail("not a finite number")
		}
		v = FloatValue(f)
	case KindBool:
		switch strings.ToUpper(payload) {
		case "1", "ON", "TRUE":
			v = BoolValue(true)
		case "0", "OFF", "FALSE":
			v = BoolValue(false)
		default:
			return Value{}, fail("not a boolean code")
		}
	case KindEnum:
		found := false
		for _, item := range op.Enum {
			if item.Code == payload {
				v, found = EnumValue(item), true
				break
			}
		}
		if !found {
			return Value{}, fail("unknown code, want one of " + op.enumLabels())
		}
	}

	if op.Range != nil && !op.Range.contains(v.Number()) {
		return Value{}, fail("outside " + op.Range.String())
	}
	return v, nil
}

// parseValue runs the full reply pipeline: grammar, then decoding.
func (op *Operation) parseValue(command, raw string) (Value, error) {
	payload, err := op.parseReply(command, raw)
	if err != nil {
		return Value{}, err
	}
	return op.decode(payload)
}
