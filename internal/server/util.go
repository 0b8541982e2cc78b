package server

import "crypto/rand"

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = joinCodeAlphabet[int(buf[i])%len(joinCodeAlphabet)]
	}
	return string(buf)
}
