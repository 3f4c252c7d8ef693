package notify

import (
	"testing"

	"github.com/antonkrylov/mossctl/internal/history"
)

func TestSubject(t *testing.T) {
	ok := &history.Record{Language: "python", ReportURL: "http://moss.example/results/1"}
	if got := Subject("moss", ok); got != "moss.reports.ready.python" {
		t.Fatalf("unexpected subject %q", got)
	}
	failed := &history.Record{}
	if got := Subject("lab", failed); got != "lab.reports.failed.unknown" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	if o.SubjectPrefix != "moss" || o.Stream != "moss_reports" || o.MaxBytes == 0 || o.DupeWindow == 0 {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}
