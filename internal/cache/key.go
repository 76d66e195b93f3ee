package cache

import "strings"

// forbiddenKeyChars are unsafe in a derived path or collide with reserved key syntax.
const forbiddenKeyChars = `{}()/\@:`

// ValidateKey 拒绝空 key 以及包含 {}()/\@: 任一字符的 key，不做任何 I/O。
func ValidateKey(key string) error {
	if key == "" {
		return &InvalidKeyError{Key: key}
	}
	if i := strings.IndexAny(key, forbiddenKeyChars); i >= 0 {
		return &InvalidKeyError{Key: key, Char: rune(key[i])}
	}
	return nil
}
