package domain

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Artifact — артефакт, произведённый или потреблённый stage
// (манифест, docker-образ, файл в хранилище и т.д.).
type Artifact struct {
	Type            string         `json:"type,omitempty" mapstructure:"type"`
	CustomKind      bool           `json:"customKind,omitempty" mapstructure:"customKind"`
	Name            string         `json:"name,omitempty" mapstructure:"name"`
	Version         string         `json:"version,omitempty" mapstructure:"version"`
	Location        string         `json:"location,omitempty" mapstructure:"location"`
	Reference       string         `json:"reference,omitempty" mapstructure:"reference"`
	Metadata        map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	ArtifactAccount string         `json:"artifactAccount,omitempty" mapstructure:"artifactAccount"`
	Provenance      string         `json:"provenance,omitempty" mapstructure:"provenance"`
	UUID            string         `json:"uuid,omitempty" mapstructure:"uuid"`
}

// DecodeArtifacts декодирует произвольное структурное значение в список артефактов.
//
// Неизвестные поля игнорируются, несовпадение типов — ошибка.
func DecodeArtifacts(raw any) ([]Artifact, error) {
	var artifacts []Artifact
	if err := decode(raw, &artifacts, false); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	return artifacts, nil
}

// decode — общий mapstructure-декодер для map'ов контекста.
func decode(raw any, out any, weak bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: weak,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
