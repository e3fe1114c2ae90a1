package domain

import "fmt"

// JobStatus — состояние запущенного job, которое пишет monitor-задача.
type JobStatus struct {
	ID       string `json:"id,omitempty" mapstructure:"id"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Region   string `json:"region,omitempty" mapstructure:"region"`
	Location string `json:"location,omitempty" mapstructure:"location"`
	Account  string `json:"account,omitempty" mapstructure:"account"`
	Provider string `json:"provider,omitempty" mapstructure:"provider"`
	State    string `json:"jobState,omitempty" mapstructure:"jobState"`
}

// RunJobContext — типизированное представление контекста run job stage.
//
// Декодируется явно через DecodeRunJobContext; остальные ключи
// контекста остаются только в StageContext.
type RunJobContext struct {
	CloudProvider string     `mapstructure:"cloudProvider"`
	Credentials   string     `mapstructure:"credentials"`
	Account       string     `mapstructure:"account"`
	JobStatus     *JobStatus `mapstructure:"jobStatus"`
}

// DecodeRunJobContext декодирует контекст stage в RunJobContext.
// Числа и bool в строковых полях приводятся к строкам.
func DecodeRunJobContext(ctx StageContext) (*RunJobContext, error) {
	var rj RunJobContext
	if err := decode(map[string]any(ctx), &rj, true); err != nil {
		return nil, fmt.Errorf("decode run job context: %w", err)
	}
	if rj.Credentials == "" {
		rj.Credentials = rj.Account
	}
	return &rj, nil
}
