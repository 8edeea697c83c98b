package lookup

import (
	"strconv"

	"github.com/paulmach/orb"
)

// 文档注释：轻量 geohash 编码（base32）
// 背景：用于缓存键；精度 10 字符约 1m，同一格内的查询共享缓存结果。
// 约束：仅用于缓存键，不参与任何几何判定。
var base32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

const keyPrecision = 10

func encodeGeohash(lat, lon float64, precision int) string {
	latInt := [2]float64{-90, 90}
	lonInt := [2]float64{-180, 180}
	bits := [5]int{16, 8, 4, 2, 1}
	bit, ch := 0, 0
	even := true
	out := make([]byte, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lonInt[0] + lonInt[1]) / 2
			if lon >= mid {
				ch |= bits[bit]
				lonInt[0] = mid
			} else {
				lonInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit, ch = 0, 0
		}
	}
	return string(out)
}

// cacheKey：lookup 类型 + 类别 + 坐标 geohash（+ 可选半径）
func cacheKey(kind, category string, p orb.Point, meters float64) string {
	k := kind + ":" + category + ":" + encodeGeohash(p[1], p[0], keyPrecision)
	if meters > 0 {
		k += ":" + strconv.FormatFloat(meters, 'f', 1, 64)
	}
	return k
}
