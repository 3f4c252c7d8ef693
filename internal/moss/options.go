package moss

import (
	"fmt"
	"slices"
)

const (
	DefaultLanguage    = "c"
	DefaultIgnoreLimit = 10
	DefaultResultLimit = 250
)

var supportedLanguages = []string{
	"c",
	"cc",
	"java",
	"ml",
	"pascal",
	"ada",
	"lisp",
	"scheme",
	"haskell",
	"fortran",
	"ascii",
	"vhdl",
	"perl",
	"matlab",
	"python",
	"mips",
	"prolog",
	"spice",
	"vb",
	"csharp",
	"modula2",
	"a8086",
	"javascript",
	"plsql",
	"verilog",
}

// SupportedLanguages returns the languages accepted by SetLanguage, in server table order.
func SupportedLanguages() []string {
	return slices.Clone(supportedLanguages)
}

// IsSupportedLanguage reports whether lang is in the supported table.
func IsSupportedLanguage(lang string) bool {
	return slices.Contains(supportedLanguages, lang)
}

// Options is the server-side comparison configuration sent at the start of a session.
// Setters validate first; a rejected value leaves the previous one in place.
type Options struct {
	comment            string
	directoryMode      int
	language           string
	ignoreLimit        int
	resultLimit        int
	experimentalServer int
}

// DefaultOptions returns the option set a fresh client starts with.
func DefaultOptions() Options {
	return Options{
		language:    DefaultLanguage,
		ignoreLimit: DefaultIgnoreLimit,
		resultLimit: DefaultResultLimit,
	}
}

func (o *Options) Comment() string         { return o.comment }
func (o *Options) DirectoryMode() int      { return o.directoryMode }
func (o *Options) Language() string        { return o.language }
func (o *Options) IgnoreLimit() int        { return o.ignoreLimit }
func (o *Options) ResultLimit() int        { return o.resultLimit }
func (o *Options) ExperimentalServer() int { return o.experimentalServer }

// SetComment accepts any string; it is passed through on the query command.
func (o *Options) SetComment(comment string) {
	o.comment = comment
}

func (o *Options) SetDirectoryMode(mode int) error {
	if err := validateFlag("directory mode", mode); err != nil {
		return err
	}
	o.directoryMode = mode
	return nil
}

func (o *Options) SetExperimentalServer(flag int) error {
	if err := validateFlag("experimental server", flag); err != nil {
		return err
	}
	o.experimentalServer = flag
	return nil
}

// SetIgnoreLimit sets how many times a passage may appear before it is ignored (maxmatches).
func (o *Options) SetIgnoreLimit(limit int) error {
	if err := validateAboveOne("ignore limit", limit); err != nil {
		return err
	}
	o.ignoreLimit = limit
	return nil
}

// SetResultLimit sets the number of matching files shown in the report.
func (o *Options) SetResultLimit(limit int) error {
	if err := validateAboveOne("result limit", limit); err != nil {
		return err
	}
	o.resultLimit = limit
	return nil
}

func (o *Options) SetLanguage(lang string) error {
	if !IsSupportedLanguage(lang) {
		return fmt.Errorf("%w: language %q is not supported", ErrValidation, lang)
	}
	o.language = lang
	return nil
}

func validateFlag(name string, v int) error {
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: %s must be 0 or 1, got %d", ErrValidation, name, v)
	}
	return nil
}

func validateAboveOne(name string, v int) error {
	if v <= 1 {
		return fmt.Errorf("%w: %s must be greater than 1, got %d", ErrValidation, name, v)
	}
	return nil
}
