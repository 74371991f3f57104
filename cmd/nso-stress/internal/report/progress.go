package report

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// Progress tracks request completion on a terminal. A nil *Progress is
// valid and does nothing, callers running with --quiet or without a
// bounded request count pass nil.
type Progress struct {
	bar *pb.ProgressBar
}

func StartProgress(w io.Writer, total int) *Progress {
	if total <= 0 {
		return nil
	}
	bar := pb.New(total)
	bar.SetWriter(w)
	bar.SetTemplateString(`{{counters . }} {{bar . }} {{percent . }} {{speed . "%s req/s"}}`)
	bar.Start()
	return &Progress{bar: bar}
}

func (p *Progress) Increment() {
	if p == nil {
		return
	}
	p.bar.Increment()
}

func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
