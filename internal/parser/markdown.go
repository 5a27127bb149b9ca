package parser

import (
	"fmt"
	"io"

	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// markdownFormat is output only.
type markdownFormat struct{}

func (markdownFormat) Name() string         { return "md" }
func (markdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (markdownFormat) Read(io.Reader, string, Options) (*table.Table, error) {
	return nil, fmt.Errorf("%w: markdown is output only", ErrUnsupported)
}

func (markdownFormat) Write(w io.Writer, t *table.Table) error {
	_, err := io.WriteString(w, t.Markdown(0))
	return err
}
