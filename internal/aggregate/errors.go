package aggregate

import "errors"

// ErrUnknownMode — неизвестный режим агрегации.
var ErrUnknownMode = errors.New("unknown aggregation mode")
