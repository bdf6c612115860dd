//go:build !linux

package flood

import (
	"errors"
)

func pinThread(int) (int, error) {
	return -1, errors.ErrUnsupported
}
