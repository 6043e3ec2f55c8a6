/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package vpp tokenizes Verilog source and expands its `define and
// `include directives into a flat token stream.
package vpp

import (
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"github.com/fwessels/vpp/internal/diagnostics"
	"github.com/fwessels/vpp/internal/preprocessor"
	"github.com/fwessels/vpp/internal/source"
	"github.com/fwessels/vpp/internal/tokenizer"
	"github.com/fwessels/vpp/internal/verilog"
)

type Options struct {
	IncludeDirs []string
	// Defines are NAME or NAME=VALUE, installed before every run.
	Defines []string
	// Source defaults to the host filesystem.
	Source source.Source
	Logger *slog.Logger
	// Locations records token spans, which makes diagnostics show the
	// offending source line.
	Locations bool
}

type Result struct {
	Tokens        []tokenizer.Token
	IncludedFiles []string
	Definitions   map[string]*preprocessor.Macro
	Diagnostics   []diagnostics.Diagnostic
}

// Text renders the preprocessed tokens as Verilog source.
func (r *Result) Text() string {
	return verilog.Render(r.Tokens)
}

// Preprocessor runs independent preprocessing passes; every call starts from
// the predefined macros only.
type Preprocessor struct {
	opts  Options
	seeds map[string]*preprocessor.Macro
}

func New(opts Options) (*Preprocessor, error) {
	if opts.Source == nil {
		opts.Source = source.OS()
	}
	p := &Preprocessor{opts: opts, seeds: map[string]*preprocessor.Macro{}}
	for _, def := range opts.Defines {
		name, value := ParseDefine(def)
		if !isIdentifier(name) {
			return nil, fmt.Errorf("bad define %q: invalid macro name", def)
		}
		p.seeds[name] = &preprocessor.Macro{Name: name, Body: verilog.Tokenize(value, "", false)}
	}
	return p, nil
}

// ParseDefine splits NAME=VALUE; a bare NAME is defined as 1.
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

func isIdentifier(s string) bool {
	toks := verilog.Tokenize(s, "", false)
	return len(toks) == 1 && toks[0].Kind == verilog.Identifier && toks[0].Value == s
}

// ProcessFile preprocesses the file at path. Only failing to read path itself
// is an error; malformed directives end up in Result.Diagnostics.
func (p *Preprocessor) ProcessFile(path string) (*Result, error) {
	if !p.opts.Source.Exists(path) {
		return nil, fmt.Errorf("%s: file does not exist", path)
	}
	text, err := p.opts.Source.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return p.run(text, path, abs), nil
}

// ProcessText preprocesses text; sourceID names it in locations.
func (p *Preprocessor) ProcessText(text, sourceID string) *Result {
	return p.run(text, sourceID, "")
}

func (p *Preprocessor) run(text, sourceID, abs string) *Result {
	bag := diagnostics.NewBag(p.opts.Logger)
	ctx := preprocessor.NewContext(p.opts.Source, bag, p.opts.IncludeDirs...)
	ctx.Definitions = maps.Clone(p.seeds)
	ctx.Locations = p.opts.Locations
	if abs != "" {
		ctx.Enter(abs)
		defer ctx.Leave(abs)
	}

	tokens := preprocessor.Preprocess(verilog.Tokenize(text, sourceID, p.opts.Locations), ctx)
	return &Result{
		Tokens:        tokens,
		IncludedFiles: ctx.IncludedFiles,
		Definitions:   ctx.Definitions,
		Diagnostics:   bag.Diagnostics(),
	}
}
