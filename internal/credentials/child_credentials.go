package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Word lists for generating kid-friendly usernames
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "cool", "swift", "clever", "jolly",
	"mighty", "super", "star", "wild", "funny", "lucky", "magic", "bouncy",
	"cheerful", "daring", "eager", "flying", "gentle", "hyper", "jazzy", "kindly",
	"lively", "merry", "noble", "perky", "quick", "royal", "snappy", "turbo",
}

var nouns = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "wolf", "bear",
	"fox", "hawk", "otter", "phoenix", "unicorn", "rocket", "wizard", "piggy",
	"knight", "pirate", "robot", "astronaut", "hero", "champion", "explorer", "ranger",
	"captain", "comet", "saver", "squirrel", "beaver", "koala", "penguin", "owl",
}

const digits = "0123456789"

// GenerateChildUsername suggests a login name such as "happy_dragon_42".
// It always satisfies the username rules.
func GenerateChildUsername() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	suffix, err := randomString(digits, 2)
	if err != nil {
		return "", err
	}

	return adjective + "_" + noun + "_" + suffix, nil
}

// GeneratePIN generates a random 4-digit PIN
func GeneratePIN() (string, error) {
	return randomString(digits, 4)
}

func randomString(alphabet string, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[num.Int64()])
	}

	return b.String(), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
