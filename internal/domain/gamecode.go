package domain

import (
	"errors"
	"strings"
)

var ErrInvalidGameCode = errors.New("invalid game code")

const v2Alphabet = "QWXRTYLPESDFGHUJKZOCVBINMA"

var v2Index = func() [26]int32 {
	var idx [26]int32
	for i := 0; i < len(v2Alphabet); i++ {
		idx[v2Alphabet[i]-'A'] = int32(i)
	}
	return idx
}()

// GameCodeToInt encodes a 4 letter (v1) or 6 letter (v2) game code the way the game
// client puts it on the wire.
func GameCodeToInt(code string) (int32, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return 0, ErrInvalidGameCode
		}
	}
	switch len(code) {
	case 4:
		return int32(uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24), nil
	case 6:
		a := v2Index[code[0]-'A']
		b := v2Index[code[1]-'A']
		c := v2Index[code[2]-'A']
		d := v2Index[code[3]-'A']
		e := v2Index[code[4]-'A']
		f := v2Index[code[5]-'A']
		one := uint32(a+26*b) & 0x3ff
		two := uint32(c + 26*(d+26*(e+26*f)))
		return int32(one | (two<<10)&0x3ffffc00 | 0x80000000), nil
	default:
		return 0, ErrInvalidGameCode
	}
}

// IntToGameCode is the inverse of GameCodeToInt.
func IntToGameCode(v int32) string {
	if v >= 0 {
		u := uint32(v)
		return string([]byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)})
	}
	u := uint32(v)
	a := u & 0x3ff
	b := (u >> 10) & 0xfffff
	return string([]byte{
		v2Alphabet[a%26],
		v2Alphabet[a/26],
		v2Alphabet[b%26],
		v2Alphabet[(b/26)%26],
		v2Alphabet[(b/(26*26))%26],
		v2Alphabet[(b/(26*26*26))%26],
	})
}
