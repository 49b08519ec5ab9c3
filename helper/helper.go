package helper

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

//Hex converter functions taken from net/parse.go

const big = 0xFFFFFF

func Xtoi(s string) (n int, i int, ok bool) {
	n = 0
	for i = 0; i < len(s); i++ {
		if '0' <= s[i] && s[i] <= '9' {
			n *= 16
			n += int(s[i] - '0')
		} else if 'a' <= s[i] && s[i] <= 'f' {
			n *= 16
			n += int(s[i]-'a') + 10
		} else if 'A' <= s[i] && s[i] <= 'F' {
			n *= 16
			n += int(s[i]-'A') + 10
		} else {
			break
		}
		if n >= big {
			return 0, i, false
		}
	}
	if i == 0 {
		return 0, i, false
	}
	return n, i, true
}

// Xtoi2 converts the next two hex digits of s into a byte, expecting e (or
// the end of the string) right after them.
func Xtoi2(s string, e byte) (byte, bool) {
	if len(s) < 2 {
		return 0, false
	}
	if len(s) > 2 && s[2] != e {
		return 0, false
	}
	n, ei, ok := Xtoi(s[:2])
	return byte(n), ok && ei == 2
}

// ParseHex accepts "0a1b2c", "0a:1b:2c" and "0a-1b-2c".
func ParseHex(s string) (res []byte, err error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nil, fmt.Errorf("%w: hex string %q too short", ErrProtocolFormat, s)
	}

	if len(s) > 2 && (s[2] == ':' || s[2] == '-') {
		sep := s[2]
		if (len(s)+1)%3 != 0 {
			return nil, fmt.Errorf("%w: malformed hex string %q", ErrProtocolFormat, s)
		}
		res = make([]byte, 0, (len(s)+1)/3)
		for x := 0; x < len(s); x += 3 {
			b, ok := Xtoi2(s[x:], sep)
			if !ok {
				return nil, fmt.Errorf("%w: malformed hex string %q", ErrProtocolFormat, s)
			}
			res = append(res, b)
		}
		return res, nil
	}

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length hex string %q", ErrProtocolFormat, s)
	}
	res = make([]byte, 0, len(s)/2)
	for x := 0; x < len(s); x += 2 {
		b, ok := Xtoi2(s[x:x+2], 0)
		if !ok {
			return nil, fmt.Errorf("%w: malformed hex string %q", ErrProtocolFormat, s)
		}
		res = append(res, b)
	}
	return res, nil
}

// Select shows a promptui list and returns the index of the chosen option.
func Select(prompt string, options []string) (index int, err error) {
	sel := promptui.Select{
		Label: prompt,
		Items: options,
	}
	index, _, err = sel.Run()
	return
}
