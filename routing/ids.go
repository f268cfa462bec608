package routing

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	loopIDPrefix   = "loop-"
	loopIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	loopIDLength   = 12
)

func newLoopID() (string, error) {
	id, err := nanoid.Generate(loopIDAlphabet, loopIDLength)
	if err != nil {
		return "", fmt.Errorf("loop id: %w", err)
	}
	return loopIDPrefix + id, nil
}
