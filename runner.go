package vigil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/vigil/pkg/domain"
)

// Runner validates a stream of documents with an Engine.
// Input holds JSON documents (one or more values, or arrays of values) or a
// multi-document YAML stream. This allows for easy testing and integration
// with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Fields   []string
	Renderer ReportRenderer
}

// ReportRenderer turns a report into the text written to Output.
// This allows for TUI rendering without coupling the core package.
type ReportRenderer func(*domain.Report) (string, error)

// Summary counts the documents of a run.
type Summary struct {
	Total   int
	Invalid int
	Reports []*domain.Report
}

// Valid reports whether every document passed.
func (s Summary) Valid() bool { return s.Invalid == 0 }

// Run validates every document of Input against schemaName.
func (r *Runner) Run(ctx context.Context, engine *Engine, schemaName string) (Summary, error) {
	var sum Summary
	if r.Input == nil {
		return sum, fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	output := r.Output
	if output == nil {
		output = io.Discard
	}
	render := r.Renderer
	if render == nil {
		render = PlainRenderer
	}

	err := decodeDocuments(r.Input, func(doc map[string]any) error {
		report, err := engine.Validate(ctx, schemaName, doc, r.Fields...)
		if err != nil {
			return err
		}
		sum.Total++
		if !report.Valid {
			sum.Invalid++
		}
		sum.Reports = append(sum.Reports, report)

		text, err := render(report)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		_, err = fmt.Fprint(output, text)
		return err
	})
	return sum, err
}

// PlainRenderer prints one line per report followed by its issues.
func PlainRenderer(report *domain.Report) (string, error) {
	var b strings.Builder
	if report.Valid {
		fmt.Fprintf(&b, "ok   %s %s\n", report.Schema, report.ID)
		return b.String(), nil
	}
	fmt.Fprintf(&b, "FAIL %s %s\n", report.Schema, report.ID)
	for _, issue := range report.Issues() {
		fmt.Fprintf(&b, "  %s: %s\n", issue.Path, issue.Code)
	}
	return b.String(), nil
}

// decodeDocuments calls fn with every document of in.
func decodeDocuments(in io.Reader, fn func(map[string]any) error) error {
	br := bufio.NewReader(in)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	if first == '{' || first == '[' {
		dec := json.NewDecoder(br)
		dec.UseNumber()
		for {
			var v any
			if err := dec.Decode(&v); err == io.EOF {
				return nil
			} else if err != nil {
				return fmt.Errorf("invalid JSON document: %w", err)
			}
			if err := eachDocument(v, fn); err != nil {
				return err
			}
		}
	}

	dec := yaml.NewDecoder(br)
	for {
		var v any
		if err := dec.Decode(&v); errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("invalid YAML document: %w", err)
		}
		if v == nil {
			continue
		}
		if err := eachDocument(v, fn); err != nil {
			return err
		}
	}
}

func eachDocument(v any, fn func(map[string]any) error) error {
	switch x := v.(type) {
	case map[string]any:
		return fn(x)
	case []any:
		for i, e := range x {
			doc, ok := e.(map[string]any)
			if !ok {
				return fmt.Errorf("document %d is %T, expected an object", i, e)
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("document is %T, expected an object", v)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}
