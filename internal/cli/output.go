package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"sigs.k8s.io/yaml"
)

// Форматы вывода.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	format string
	w      io.Writer // stdout для данных
	errW   io.Writer // stderr для сообщений
}

// NewOutput создаёт Output для stdout/stderr.
func NewOutput(format string) *Output {
	return NewOutputTo(format, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с явными writers.
func NewOutputTo(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Structured — выводятся ли данные как JSON/YAML.
func (o *Output) Structured() bool {
	return o.format == FormatJSON || o.format == FormatYAML
}

// Print выводит данные: таблицу, JSON или YAML в зависимости от формата.
func (o *Output) Print(headers []string, rows [][]string, data any) error {
	if o.Structured() {
		return o.Data(data)
	}
	o.Table(headers, rows)
	return nil
}

// Data выводит данные в JSON или YAML. Для table — YAML.
func (o *Output) Data(v any) error {
	if o.format == FormatJSON {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	_, err = o.w.Write(data)
	return err
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// Section печатает заголовок блока (только в табличном режиме).
func (o *Output) Section(title string) {
	if !o.Structured() {
		fmt.Fprintf(o.w, "\n%s\n", title)
	}
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
