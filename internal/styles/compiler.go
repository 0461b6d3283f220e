package styles

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/conneroisu/assetflow/internal/errors"
)

// Input is one stylesheet handed to a Compiler.
type Input struct {
	// Source is the SCSS text after glob import expansion.
	Source []byte
	// Path is the absolute path of the file, used for error locations and
	// relative import resolution.
	Path string
	// IncludePaths are absolute load paths.
	IncludePaths []string
}

// Compiler turns SCSS into plain CSS.
type Compiler interface {
	Compile(ctx context.Context, in Input) ([]byte, error)
}

// DartSass compiles through the Dart Sass embedded protocol. The
// transpiler process is started on first use and shared by all callers.
type DartSass struct {
	binary  string
	timeout time.Duration

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// NewDartSass returns a compiler that runs binary (usually "sass").
func NewDartSass(binary string) *DartSass {
	if binary == "" {
		binary = "sass"
	}
	return &DartSass{binary: binary, timeout: 30 * time.Second}
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transpiler != nil {
		return d.transpiler, nil
	}
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: d.binary,
		Timeout:                  d.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("start dart sass (%s): %w", d.binary, err)
	}
	d.transpiler = t
	return t, nil
}

// Compile implements Compiler.
func (d *DartSass) Compile(ctx context.Context, in Input) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := d.start()
	if err != nil {
		return nil, err
	}

	includes := append([]string{filepath.Dir(in.Path)}, in.IncludePaths...)
	res, err := t.Execute(godartsass.Args{
		Source:       string(in.Source),
		URL:          "file://" + filepath.ToSlash(in.Path),
		OutputStyle:  godartsass.OutputStyleExpanded,
		SourceSyntax: sourceSyntax(in.Path),
		IncludePaths: includes,
	})
	if err != nil {
		return nil, compileError(in.Path, err)
	}
	return []byte(res.CSS), nil
}

// sourceSyntax picks the indented syntax for .sass files.
func sourceSyntax(file string) godartsass.SourceSyntax {
	if strings.EqualFold(filepath.Ext(file), ".sass") {
		return godartsass.SourceSyntaxSASS
	}
	return godartsass.SourceSyntaxSCSS
}

// Close stops the transpiler process.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	return err
}

// sassLocationRe finds the "file 12:5" trailer Dart Sass prints under a
// failing span.
var sassLocationRe = regexp.MustCompile(`(?m)^\s*(\S+\.(?:scss|sass|css))\s+(\d+):(\d+)`)

func compileError(file string, err error) *errors.Error {
	msg := err.Error()
	line, col := 0, 0
	if m := sassLocationRe.FindStringSubmatch(msg); m != nil {
		file = strings.TrimPrefix(m[1], "file://")
		line, _ = strconv.Atoi(m[2])
		col, _ = strconv.Atoi(m[3])
	}
	headline := strings.TrimPrefix(strings.SplitN(msg, "\n", 2)[0], "Error: ")
	return errors.NewCompileError(headline, nil).WithLocation(file, line, col)
}
