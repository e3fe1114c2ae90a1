package cli

import "errors"

// Ошибки CLI.
var (
	// ErrInvalidFixture — файл не разбирается как YAML/JSON нужной формы.
	ErrInvalidFixture = errors.New("invalid input file")

	// ErrUnknownFormat — неизвестный формат вывода.
	ErrUnknownFormat = errors.New("unknown output format")
)
