package domain

// ExecutionStatus — статус выполнения stage или task.
//
// Жизненный цикл:
//
//	NOT_STARTED → RUNNING → SUCCEEDED
//	                      ↘ TERMINAL
//	                      ↘ FAILED_CONTINUE
//	              (или) → CANCELED (из NOT_STARTED или RUNNING)
type ExecutionStatus string

const (
	// StatusNotStarted — stage создан, но ещё не начал выполняться.
	StatusNotStarted ExecutionStatus = "NOT_STARTED"

	// StatusRunning — stage в процессе выполнения.
	StatusRunning ExecutionStatus = "RUNNING"

	// StatusSucceeded — stage успешно завершён.
	StatusSucceeded ExecutionStatus = "SUCCEEDED"

	// StatusTerminal — stage завершился с ошибкой, pipeline останавливается.
	StatusTerminal ExecutionStatus = "TERMINAL"

	// StatusFailedContinue — stage упал, но pipeline продолжает выполнение.
	StatusFailedContinue ExecutionStatus = "FAILED_CONTINUE"

	// StatusCanceled — stage отменён.
	StatusCanceled ExecutionStatus = "CANCELED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusTerminal, StatusFailedContinue, StatusCanceled:
		return true
	default:
		return false
	}
}

// StageStatus — статус, который возвращает plugin stage.
//
// Plugin API намеренно уже, чем ExecutionStatus: плагин не знает
// про отмену и FAILED_CONTINUE.
type StageStatus string

const (
	StageStatusTerminal   StageStatus = "TERMINAL"
	StageStatusRunning    StageStatus = "RUNNING"
	StageStatusCompleted  StageStatus = "COMPLETED"
	StageStatusNotStarted StageStatus = "NOT_STARTED"
)

// ExecutionStatus переводит StageStatus плагина в ExecutionStatus.
// Неизвестный статус считается FAILED_CONTINUE.
func (s StageStatus) ExecutionStatus() ExecutionStatus {
	switch s {
	case StageStatusTerminal:
		return StatusTerminal
	case StageStatusRunning:
		return StatusRunning
	case StageStatusCompleted:
		return StatusSucceeded
	case StageStatusNotStarted:
		return StatusNotStarted
	default:
		return StatusFailedContinue
	}
}

// ParseExecutionStatus парсит строку в ExecutionStatus.
func ParseExecutionStatus(s string) ExecutionStatus {
	switch ExecutionStatus(s) {
	case StatusRunning, StatusSucceeded, StatusTerminal, StatusFailedContinue, StatusCanceled:
		return ExecutionStatus(s)
	default:
		return StatusNotStarted
	}
}
