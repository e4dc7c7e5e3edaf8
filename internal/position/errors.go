package position

import "errors"

var ErrIndexOutOfRange = errors.New("position: index out of range")
