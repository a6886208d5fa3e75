package helpers

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
)

// Redis key helpers

func KeySession(uid int64, sid string) string {
	return "user:session:" + strconv.FormatInt(uid, 10) + ":" + sid
}

// KeySessionIndex is the set of active session ids of a user.
func KeySessionIndex(uid int64) string {
	return "user:sessions:" + strconv.FormatInt(uid, 10)
}

func KeyResetToken(t string) string     { return "pwd:reset:token:" + t }
func KeyGuestToken(email string) string { return "guest:token:" + email }

const KeyCategories = "categories_list"

// RandomToken returns a URL-safe random token built from n random bytes.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomSuffix returns a short numeric suffix used to de-duplicate usernames.
func RandomSuffix() string {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "0"
	}
	return strconv.Itoa(int(b[0])<<8 | int(b[1]))
}
