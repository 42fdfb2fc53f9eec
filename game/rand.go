/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Shuffler is the randomness source behind profile selection. *rand.Rand
// satisfies it, so tests can inject a fixed seed and assert distribution
// properties deterministically.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewShuffler returns a PCG source seeded from crypto/rand.
func NewShuffler() Shuffler {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(buf[:8]),
		binary.LittleEndian.Uint64(buf[8:]),
	))
}
