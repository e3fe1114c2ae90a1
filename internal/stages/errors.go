package stages

import "errors"

// Ошибки stages.
var (
	// ErrStageNotFound — тип stage не найден в реестре.
	ErrStageNotFound = errors.New("stage type not found")

	// ErrAliasConflict — алиас уже занят другим типом.
	ErrAliasConflict = errors.New("stage alias conflict")

	// ErrEmptyType — определение без типа.
	ErrEmptyType = errors.New("stage definition has empty type")

	// ErrExternalTask — задача выполняется внешним engine, а не этим процессом.
	ErrExternalTask = errors.New("task is executed by the engine")

	// ErrPluginDecode — контекст stage не декодируется во вход плагина.
	ErrPluginDecode = errors.New("cannot decode plugin stage input")
)
