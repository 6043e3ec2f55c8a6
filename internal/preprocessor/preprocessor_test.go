package preprocessor

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/fwessels/vpp/internal/diagnostics"
	"github.com/fwessels/vpp/internal/source"
	"github.com/fwessels/vpp/internal/tokenizer"
	"github.com/fwessels/vpp/internal/verilog"
)

const includeDir = "/out"

func tokenize(code string) []tokenizer.Token {
	return verilog.Tokenize(code, "", false)
}

type fixture struct {
	fs  *source.FS
	bag *diagnostics.Bag
	ctx *Context
}

func newFixture(t *testing.T, files map[string]string, dirs ...string) *fixture {
	t.Helper()
	fs := source.Memory()
	for name, contents := range files {
		if err := fs.WriteFile(name, contents); err != nil {
			t.Fatal(err)
		}
	}
	if len(dirs) == 0 {
		dirs = []string{includeDir}
	}
	bag := diagnostics.NewBag(nil)
	return &fixture{fs: fs, bag: bag, ctx: NewContext(fs, bag, dirs...)}
}

func (f *fixture) preprocess(code string) []tokenizer.Token {
	return Preprocess(tokenize(code), f.ctx)
}

func checkTokens(t *testing.T, want, got []tokenizer.Token) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func checkDefines(t *testing.T, want, got map[string]*Macro) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNonPreprocessTokensAreKept(t *testing.T) {
	f := newFixture(t, nil)
	code := `"hello"ident/*comment*///comment`
	checkTokens(t, tokenize(code), f.preprocess(code))
	checkDefines(t, map[string]*Macro{}, f.ctx.Definitions)
}

func TestUnknownDirectiveIsKept(t *testing.T) {
	f := newFixture(t, nil)
	checkTokens(t, tokenize("`timescale 1ns"), f.preprocess("`timescale 1ns"))
}

func TestDefine(t *testing.T) {
	for _, tt := range []struct {
		name string
		code string
		want *Macro
		rest string
	}{
		{
			"without value",
			"`define foo",
			&Macro{Name: "foo"},
			"",
		},
		{
			"with value",
			"`define foo bar \"abc\"",
			&Macro{Name: "foo", Body: tokenize("bar \"abc\"")},
			"",
		},
		{
			"with lpar value",
			"`define foo (bar)",
			&Macro{Name: "foo", Body: tokenize("(bar)")},
			"",
		},
		{
			"with one arg",
			"`define foo(arg)arg 123",
			&Macro{Name: "foo", Body: tokenize("arg 123"), Params: []string{"arg"}},
			"",
		},
		{
			"with one arg ignores initial space",
			"`define foo(arg) arg 123",
			&Macro{Name: "foo", Body: tokenize("arg 123"), Params: []string{"arg"}},
			"",
		},
		{
			"with multiple args",
			"`define foo( arg1, arg2)arg1 arg2",
			&Macro{Name: "foo", Body: tokenize("arg1 arg2"), Params: []string{"arg1", "arg2"}},
			"",
		},
		{
			"with default values",
			"`define foo(arg1, arg2=default)arg1 arg2",
			&Macro{
				Name:     "foo",
				Body:     tokenize("arg1 arg2"),
				Params:   []string{"arg1", "arg2"},
				Defaults: map[string][]tokenizer.Token{"arg2": tokenize("default")},
			},
			"",
		},
		{
			"body ends at newline",
			"`define foo bar\nbaz",
			&Macro{Name: "foo", Body: tokenize("bar")},
			"baz",
		},
		{
			"body continues over escaped newline",
			"`define foo a \\\n b\nbaz",
			&Macro{Name: "foo", Body: tokenize("a \\\n b")},
			"baz",
		},
		{
			"body starts right after name",
			"`define foo\"x\"",
			&Macro{Name: "foo", Body: tokenize(`"x"`)},
			"",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			checkTokens(t, tokenize(tt.rest), f.preprocess(tt.code))
			checkDefines(t, map[string]*Macro{"foo": tt.want}, f.ctx.Definitions)
		})
	}
}

func TestDefineFollowedByNewlineIsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	got := f.preprocess("`define FLAG\nnext line")
	checkTokens(t, tokenize("next line"), got)
	checkDefines(t, map[string]*Macro{"FLAG": {Name: "FLAG"}}, f.ctx.Definitions)
}

func TestBrokenDefineArgumentList(t *testing.T) {
	for _, code := range []string{
		"`define foo(",
		"`define foo(a",
		"`define foo(a=",
		"`define foo(a=b",
		"`define foo(a=)",
		"`define foo(\"a\"",
		"`define foo(\"a\"=",
		"`define foo(a, a) a",
	} {
		t.Run(code, func(t *testing.T) {
			f := newFixture(t, nil)
			checkTokens(t, nil, f.preprocess(code))
			checkDefines(t, map[string]*Macro{}, f.ctx.Definitions)
			if f.bag.Count(diagnostics.Debug) != 1 {
				t.Errorf("got diagnostics:\n%s", f.bag)
			}
		})
	}
}

func TestBrokenDefineIsDescribed(t *testing.T) {
	for _, tt := range []struct {
		code string
		want diagnostics.Diagnostic
	}{
		{
			"`define",
			diagnostics.Diagnostic{
				Severity:    diagnostics.Warning,
				Directive:   "define",
				Message:     "without argument",
				Location:    &tokenizer.Location{Source: "/fn.v", Start: 0, End: 6},
				Description: "from /fn.v line 1:\n`define\n~~~~~~~",
			},
		},
		{
			"`define \"foo\"",
			diagnostics.Diagnostic{
				Severity:    diagnostics.Warning,
				Directive:   "define",
				Message:     "invalid name",
				Location:    &tokenizer.Location{Source: "/fn.v", Start: 8, End: 12},
				Description: "from /fn.v line 1:\n`define \"foo\"\n        ~~~~~",
			},
		},
	} {
		t.Run(tt.code, func(t *testing.T) {
			f := newFixture(t, map[string]string{"/fn.v": tt.code})
			got := Preprocess(verilog.Tokenize(tt.code, "/fn.v", true), f.ctx)
			checkTokens(t, nil, got)
			checkDefines(t, map[string]*Macro{}, f.ctx.Definitions)
			if diff := cmp.Diff([]diagnostics.Diagnostic{tt.want}, f.bag.Diagnostics()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	for _, tt := range []struct {
		name string
		code string
		want string
	}{
		{"without args", "`define foo bar \"abc\"\n`foo", "bar \"abc\""},
		{"with one arg", "`define foo(arg)arg 123\n`foo(hello hey)", "hello hey 123"},
		{"with multiple args", "`define foo(arg1, arg2)arg1,arg2\n`foo(1 2, hello)", "1 2, hello"},
		{"with default values", "`define foo(arg1, arg2=default)arg1 arg2\n`foo(1)", "1 default"},
		{"actual overrides default", "`define foo(arg1, arg2=default)arg1 arg2\n`foo(1,2)", "1 2"},
		{"leading default", "`define foo(arg1=x, arg2)arg1 arg2\n`foo(1,2)", "1 2"},
		{"zero args ignore call syntax", "`define foo bar\n`foo(1)", "bar(1)"},
		{"surrounding text", "`define W 8\nwire [`W-1:0] x;", "wire [8-1:0] x;"},
		{"missing default", "`define foo(arg1, arg2)arg1,arg2\n`foo(1 2)", ""},
		{"missing call", "`define foo(arg1, arg2)arg1,arg2\n`foo", ""},
		{"unterminated call", "`define foo(arg1, arg2)arg1,arg2\n`foo(", ""},
		{"unterminated actual", "`define foo(arg1, arg2)arg1,arg2\n`foo(1", ""},
		{"call without paren", "`define foo(arg)arg\n`foo x", "x"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			checkTokens(t, tokenize(tt.want), f.preprocess(tt.code))
		})
	}
}

func TestBrokenMacroUseIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.preprocess("`define foo(a, b) a b\n`foo(1)")
	diags := f.bag.Diagnostics()
	if len(diags) != 1 || diags[0].Directive != "foo" || diags[0].Severity != diagnostics.Debug {
		t.Fatalf("got diagnostics:\n%s", f.bag)
	}
	if want := "broken macro use: `foo b: no actual and no default for parameter"; diags[0].Message != want {
		t.Errorf("got %q, want %q", diags[0].Message, want)
	}
}

func TestActualsAreNotNestingAware(t *testing.T) {
	f := newFixture(t, nil)
	got := f.preprocess("`define foo(a, b) a|b\n`foo((1,2), 3)")
	checkTokens(t, tokenize("(1|2, 3)"), got)
}

func TestRedefinitionReplacesMacro(t *testing.T) {
	f := newFixture(t, nil)
	got := f.preprocess("`define foo(a, b=2) a b\n`foo(1)\n`define foo last\n`foo(1)")
	checkTokens(t, tokenize("1 2\nlast(1)"), got)
	checkDefines(t, map[string]*Macro{"foo": {Name: "foo", Body: tokenize("last")}}, f.ctx.Definitions)
}

func TestPreseededDefinitions(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.Definitions["WIDTH"] = &Macro{Name: "WIDTH", Body: tokenize("32")}
	checkTokens(t, tokenize("[32]"), f.preprocess("[`WIDTH]"))
}

func TestInclude(t *testing.T) {
	files := map[string]string{includeDir + "/include.svh": "hello hey"}
	for _, tt := range []struct {
		name     string
		code     string
		want     string
		included []string
	}{
		{"string", "`include \"include.svh\"", "hello hey", []string{includeDir + "/include.svh"}},
		{"missing file", "`include \"missing.svh\"", "", nil},
		{"missing argument", "`include", "", nil},
		{"bad argument ignored", "`include foo \"include.svh\"", " \"include.svh\"", nil},
		{"from define", "`define inc \"include.svh\"\n`include `inc", "hello hey", []string{includeDir + "/include.svh"}},
		{"from define with args", "`define inc(a) a\n`include `inc(\"include.svh\")", "hello hey", []string{includeDir + "/include.svh"}},
		{"from define broken", "`define inc foo\n`include `inc", "", nil},
		{"from empty define", "`define inc\n`include `inc", "", nil},
		{"from unknown define", "`include `inc", "", nil},
		{"from define with broken call", "`define inc(a) a\n`include `inc", "", nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, files)
			checkTokens(t, tokenize(tt.want), f.preprocess(tt.code))
			if diff := cmp.Diff(tt.included, f.ctx.IncludedFiles, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIncludeSearchOrder(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/b/x.svh": "from_b",
		"/c/x.svh": "from_c",
	}, "/a", "/b", "/c")

	checkTokens(t, tokenize("from_b"), f.preprocess("`include \"x.svh\""))
	if diff := cmp.Diff([]string{"/b/x.svh"}, f.ctx.IncludedFiles); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeSharesDefinitions(t *testing.T) {
	f := newFixture(t, map[string]string{
		includeDir + "/defs.svh":  "`define W 8\n`include \"inner.svh\"\n",
		includeDir + "/inner.svh": "`define INNER 9\n",
	})
	got := f.preprocess("`include \"defs.svh\"\n`W `INNER")
	checkTokens(t, tokenize("\n\n8 9"), got)
	if diff := cmp.Diff([]string{includeDir + "/defs.svh", includeDir + "/inner.svh"}, f.ctx.IncludedFiles); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.ctx.Definitions["INNER"]; !ok {
		t.Error("definition made inside include is not visible")
	}
}

func TestIncludeUsesCallerDefinitions(t *testing.T) {
	f := newFixture(t, map[string]string{includeDir + "/use.svh": "`W"})
	got := f.preprocess("`define W 4\n`include \"use.svh\"")
	checkTokens(t, tokenize("4"), got)
}

func TestIncludeCycle(t *testing.T) {
	f := newFixture(t, map[string]string{includeDir + "/a.svh": "`include \"a.svh\"\nA"})
	got := f.preprocess("`include \"a.svh\"")
	checkTokens(t, tokenize("\nA"), got)
	if diff := cmp.Diff([]string{includeDir + "/a.svh"}, f.ctx.IncludedFiles); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if !f.bag.HasErrors() {
		t.Errorf("cycle not reported:\n%s", f.bag)
	}
}

func TestIncludeTwiceIsNotACycle(t *testing.T) {
	f := newFixture(t, map[string]string{includeDir + "/x.svh": "x"})
	got := f.preprocess("`include \"x.svh\" `include \"x.svh\"")
	checkTokens(t, tokenize("x x"), got)
	if len(f.ctx.IncludedFiles) != 2 || f.bag.HasErrors() {
		t.Errorf("included %v, diagnostics:\n%s", f.ctx.IncludedFiles, f.bag)
	}
}

func TestIncludeLocations(t *testing.T) {
	f := newFixture(t, map[string]string{includeDir + "/bad.svh": "`define \"x\""})
	f.ctx.Locations = true
	f.preprocess("`include \"bad.svh\"")
	diags := f.bag.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got diagnostics:\n%s", f.bag)
	}
	want := "from /out/bad.svh line 1:\n`define \"x\"\n        ~~~"
	if diff := cmp.Diff(want, diags[0].Description); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type unreadable struct{ *source.FS }

func (unreadable) ReadAll(path string) (string, error) {
	return "", errors.New("permission denied")
}

func TestIncludeReadFailureIsStillRecorded(t *testing.T) {
	f := newFixture(t, map[string]string{includeDir + "/locked.svh": "x"})
	f.ctx.Source = unreadable{f.fs}
	got := f.preprocess("a\n`include \"locked.svh\"\nb")
	checkTokens(t, tokenize("a\n\nb"), got)
	if diff := cmp.Diff([]string{includeDir + "/locked.svh"}, f.ctx.IncludedFiles); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if f.bag.Count(diagnostics.Error) != 1 {
		t.Errorf("read failure not reported:\n%s", f.bag)
	}
}

type countingReads struct {
	*source.FS
	reads map[string]int
}

func (c *countingReads) ReadAll(path string) (string, error) {
	c.reads[path]++
	return c.FS.ReadAll(path)
}

func TestDescriptionsReadEachFileOnce(t *testing.T) {
	top := "`define 1\n`define 2\n`include \"bad.svh\"\n"
	f := newFixture(t, map[string]string{
		"/top.v":                top,
		includeDir + "/bad.svh": "`define \"a\"\n`define \"b\"\n`define \"c\"\n",
	})
	src := &countingReads{FS: f.fs, reads: map[string]int{}}
	f.ctx.Source = src
	f.ctx.Locations = true

	Preprocess(verilog.Tokenize(top, "/top.v", true), f.ctx)
	if f.bag.Len() != 5 {
		t.Fatalf("got diagnostics:\n%s", f.bag)
	}
	for _, d := range f.bag.Diagnostics() {
		if d.Location == nil || !strings.HasPrefix(d.Description, "from "+d.Location.Source+" line ") {
			t.Errorf("bad description %q", d.Description)
		}
	}
	want := map[string]int{"/top.v": 1, includeDir + "/bad.svh": 1}
	if diff := cmp.Diff(want, src.reads); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
