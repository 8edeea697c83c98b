package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Unit：距离单位
type Unit string

const (
	Kilometers Unit = "kilometers"
	Miles      Unit = "miles"
	Meters     Unit = "meters"
	Feet       Unit = "feet"
)

// ParseUnit 接受长名与常见缩写；空字符串按公里处理
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "km", "kilometer", "kilometers":
		return Kilometers, nil
	case "mi", "mile", "miles":
		return Miles, nil
	case "m", "meter", "meters":
		return Meters, nil
	case "ft", "foot", "feet":
		return Feet, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrDegenerateInput, s)
}

// ToMeters 换算为米；负值、NaN、Inf 视为退化输入
func (u Unit) ToMeters(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: distance %v", ErrDegenerateInput, v)
	}
	switch u {
	case Kilometers, "":
		return v * 1000, nil
	case Miles:
		return v * 1609.344, nil
	case Meters:
		return v, nil
	case Feet:
		return v * 0.3048, nil
	}
	return 0, fmt.Errorf("%w: unknown unit %q", ErrDegenerateInput, string(u))
}
