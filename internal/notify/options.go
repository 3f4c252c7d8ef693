package notify

import (
	"log/slog"
	"time"
)

// Options describe where report events are published.
type Options struct {
	URL           string
	User          string
	Password      string
	SubjectPrefix string
	Stream        string
	MaxBytes      int64
	DupeWindow    time.Duration
	Logger        *slog.Logger
}

func (o *Options) setDefaults() {
	if o.SubjectPrefix == "" {
		o.SubjectPrefix = "moss"
	}
	if o.Stream == "" {
		o.Stream = "moss_reports"
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = 1024 * 1024 * 1024 // 1GB
	}
	if o.DupeWindow == 0 {
		o.DupeWindow = 2 * time.Minute
	}
}
