package credentials

import "strings"

// InviteCodeAlphabet omits 0/O and 1/I so codes survive being read aloud
const InviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLength gives 32^10 (about 2^50) possible codes
const InviteCodeLength = 10

// GenerateInviteCode returns a cryptographically random invitation code
func GenerateInviteCode() (string, error) {
	return randomString(InviteCodeAlphabet, InviteCodeLength)
}

// NormalizeInviteCode uppercases and trims user-entered codes
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
