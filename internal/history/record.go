package history

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Record describes one submission and, once finished, its outcome.
type Record struct {
	ID                 string
	CreatedAt          time.Time
	FinishedAt         time.Time
	Server             string
	Language           string
	Comment            string
	DirectoryMode      int
	ExperimentalServer int
	IgnoreLimit        int
	ResultLimit        int
	BaseFiles          []string
	Files              []string

	// State is the last protocol state the session reached.
	State     string
	ReportURL string
	Error     string
	ErrorKind string
	Archived  bool
}

// Succeeded reports whether the submission produced a report.
func (r *Record) Succeeded() bool {
	return r.ReportURL != ""
}

// Struct encodes the record as a protobuf Struct; it is also the event payload
// published to JetStream.
func (r *Record) Struct() (*structpb.Struct, error) {
	fields := map[string]any{
		"id":                  r.ID,
		"created_at":          r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"server":              r.Server,
		"language":            r.Language,
		"comment":             r.Comment,
		"directory_mode":      r.DirectoryMode,
		"experimental_server": r.ExperimentalServer,
		"ignore_limit":        r.IgnoreLimit,
		"result_limit":        r.ResultLimit,
		"base_files":          toAny(r.BaseFiles),
		"files":               toAny(r.Files),
		"state":               r.State,
		"report_url":          r.ReportURL,
		"error":               r.Error,
		"error_kind":          r.ErrorKind,
		"archived":            r.Archived,
	}
	if !r.FinishedAt.IsZero() {
		fields["finished_at"] = r.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return s, nil
}

func recordFromStruct(s *structpb.Struct) (*Record, error) {
	f := s.GetFields()
	r := &Record{
		ID:                 f["id"].GetStringValue(),
		Server:             f["server"].GetStringValue(),
		Language:           f["language"].GetStringValue(),
		Comment:            f["comment"].GetStringValue(),
		DirectoryMode:      int(f["directory_mode"].GetNumberValue()),
		ExperimentalServer: int(f["experimental_server"].GetNumberValue()),
		IgnoreLimit:        int(f["ignore_limit"].GetNumberValue()),
		ResultLimit:        int(f["result_limit"].GetNumberValue()),
		BaseFiles:          fromList(f["base_files"]),
		Files:              fromList(f["files"]),
		State:              f["state"].GetStringValue(),
		ReportURL:          f["report_url"].GetStringValue(),
		Error:              f["error"].GetStringValue(),
		ErrorKind:          f["error_kind"].GetStringValue(),
		Archived:           f["archived"].GetBoolValue(),
	}
	if r.ID == "" {
		return nil, fmt.Errorf("record has no id")
	}
	var err error
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("record %s created_at: %w", r.ID, err)
	}
	if v := f["finished_at"].GetStringValue(); v != "" {
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("record %s finished_at: %w", r.ID, err)
		}
	}
	return r, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func fromList(v *structpb.Value) []string {
	values := v.GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, e := range values {
		out[i] = e.GetStringValue()
	}
	return out
}
