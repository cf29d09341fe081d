package refdata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Scalar fields.
const (
	FieldPxLast      = "PX_LAST"
	FieldBid         = "BID"
	FieldAsk         = "ASK"
	FieldTicker      = "TICKER"
	FieldTradeableDt = "TRADEABLE_DT"
	FieldOptExpireDt = "OPT_EXPIRE_DT"
)

// Bulk fields.
const (
	FieldChainTickers = "CHAIN_TICKERS"
)

// Overrides accepted by CHAIN_TICKERS.
const (
	OverrideChainPutCall = "CHAIN_PUT_CALL_TYPE_OVRD" // "C" or "P"
	OverrideChainPoints  = "CHAIN_POINTS_OVRD"        // positive integer
	OverrideChainExpDt   = "CHAIN_EXP_DT_OVRD"        // yyyyMMdd
)

// FieldSpec lists the fields to request, partitioned by shape.
type FieldSpec struct {
	Scalar []string // One value per security
	Bulk   []string // Array of sub-records per security
}

// DefaultFieldSpec returns the fields this deployment requests.
// TICKER appears twice; the service accepts repeated fields.
func DefaultFieldSpec() FieldSpec {
	return FieldSpec{
		Scalar: []string{
			FieldPxLast,
			FieldBid,
			FieldAsk,
			FieldTicker,
			FieldTradeableDt,
			FieldOptExpireDt,
			FieldTicker,
		},
		Bulk: []string{FieldChainTickers},
	}
}

// Override is one fieldId/value directive.
type Override struct {
	FieldID string `json:"fieldId"`
	Value   Value  `json:"value"`
}

// OverrideSpec is the ordered override list for the request.
type OverrideSpec []Override

// DefaultChainOverrides restricts CHAIN_TICKERS to five puts expiring 2014-12-20.
func DefaultChainOverrides() OverrideSpec {
	return OverrideSpec{
		{FieldID: OverrideChainPutCall, Value: String("P")},
		{FieldID: OverrideChainPoints, Value: Int(5)},
		{FieldID: OverrideChainExpDt, Value: String("20141220")},
	}
}

type valueKind uint8

const (
	kindString valueKind = iota
	kindInt
)

// Value is an override value: either a string or an integer.
// The type must match what the service schema expects for the override.
type Value struct {
	kind valueKind
	str  string
	num  int64
}

// String returns a string override value.
func String(s string) Value {
	return Value{kind: kindString, str: s}
}

// Int returns an integer override value.
func Int(n int64) Value {
	return Value{kind: kindInt, num: n}
}

// ValueOf converts a decoded config value (string or integer) to a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Int(int64(x)), nil
	default:
		return Value{}, fmt.Errorf("unsupported override value type %T", v)
	}
}

// IsInt reports whether the value is an integer.
func (v Value) IsInt() bool {
	return v.kind == kindInt
}

// Int64 returns the integer value (zero for string values).
func (v Value) Int64() int64 {
	return v.num
}

// String returns the value as text.
func (v Value) String() string {
	if v.kind == kindInt {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// MarshalJSON emits a JSON string or number.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == kindInt {
		return []byte(strconv.FormatInt(v.num, 10)), nil
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON accepts a JSON string or integer.
func (v *Value) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("override value %s: %w", data, err)
	}
	*v = Int(n)
	return nil
}
