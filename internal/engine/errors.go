package engine

import "errors"

// Ошибки построения графов.
var (
	// ErrEmptyTaskName — задача без имени.
	ErrEmptyTaskName = errors.New("task has empty name")

	// ErrNilTask — задача без реализации.
	ErrNilTask = errors.New("task has no implementation")

	// ErrDuplicateTask — задача с таким именем уже есть в графе.
	ErrDuplicateTask = errors.New("duplicate task name")

	// ErrNilStage — в stage graph передан nil.
	ErrNilStage = errors.New("stage is nil")

	// ErrUnknownStage — ребро ссылается на stage, которого нет в графе.
	ErrUnknownStage = errors.New("stage is not in graph")

	// ErrCyclicDependency — обнаружен цикл в stage graph.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrSelfDependency — stage зависит от самого себя.
	ErrSelfDependency = errors.New("stage depends on itself")
)

// Ошибки определения stage.
var (
	// ErrEmptyStageType — stage без типа.
	ErrEmptyStageType = errors.New("stage has empty type")

	// ErrInvalidStageJSON — определение stage не парсится.
	ErrInvalidStageJSON = errors.New("invalid stage definition")

	// ErrInvalidPhase — неизвестная фаза sub-stage.
	ErrInvalidPhase = errors.New("invalid synthetic stage owner")
)

// Ошибки вычисления выражений.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StageRef string // RefID или ID stage, где произошла ошибка
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StageRef != "" {
		return "stage " + e.StageRef + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stageRef, field, message string, err error) *ValidationError {
	return &ValidationError{
		StageRef: stageRef,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
