package model

import (
	"strconv"
	"strings"
)

// 複数値フィールドの区切り文字
const ValueSeparator = ";"

// "AC/DC" はスラッシュ区切りのID3v2.3で2人のアーティストとして読まれ、
// 結合すると "AC;DC" になる。この名前だけは元に戻す。
const (
	acdcJoined   = "AC;DC"
	acdcOriginal = "AC/DC"
)

// SplitValues は ";" または "|" で区切られた表示用文字列を値の配列に戻す。
func SplitValues(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|'
	})
}

// JoinValues は値の配列を ";" で結合する。空の値は捨てる。
func JoinValues(values []string) string {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	return strings.Join(nonEmpty, ValueSeparator)
}

// JoinArtists は JoinValues に "AC;DC" の特例を加えたもの。
func JoinArtists(values []string) string {
	joined := JoinValues(values)
	if strings.Contains(joined, acdcJoined) {
		joined = strings.ReplaceAll(joined, acdcJoined, acdcOriginal)
	}
	return joined
}

// ParseInt は数値の文字列を読む。呼び出し側がエラー時の既定値を決める。
func ParseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// ParseNumberPair は "N" または "N/M" 形式の番号を読む。
func ParseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return num, total
}

// FormatNumberPair は ParseNumberPair の逆。番号が0なら空文字列を返す。
func FormatNumberPair(num, total int) string {
	if num <= 0 && total <= 0 {
		return ""
	}
	if total <= 0 {
		return strconv.Itoa(num)
	}
	return strconv.Itoa(num) + "/" + strconv.Itoa(total)
}

// FormatInt は0を空文字列として書く。
func FormatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// ParseYear は "2024" や "2024-05-01" から年を読む。
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 4 {
		s = s[:4]
	}
	return strconv.Atoi(s)
}
