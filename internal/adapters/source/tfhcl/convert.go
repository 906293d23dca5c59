package tfhcl

import (
	"fmt"
	"math"
	"math/big"

	jsoniter "github.com/json-iterator/go"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ctyToGo converts a known cty value into plain Go data (string, bool,
// float64, []any, map[string]any) via a JSON intermediate, which handles
// objects, tuples and sets uniformly.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}

	if val.Type().Equals(cty.Number) {
		bf := val.AsBigFloat()
		if i64, acc := bf.Int64(); acc == big.Exact {
			return float64(i64), nil
		}
		f64, _ := bf.Float64()
		if math.IsInf(f64, 0) {
			return bf.Text('g', -1), nil
		}
		return f64, nil
	}
	if val.Type().Equals(cty.String) {
		return val.AsString(), nil
	}
	if val.Type().Equals(cty.Bool) {
		return val.True(), nil
	}

	jsonBytes, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", val.Type().FriendlyName(), err)
	}
	var goVal any
	if err := json.Unmarshal(jsonBytes, &goVal); err != nil {
		return nil, fmt.Errorf("unmarshal %s value: %w", val.Type().FriendlyName(), err)
	}
	return goVal, nil
}
