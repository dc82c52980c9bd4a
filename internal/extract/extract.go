package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"tpack/internal/errors"
	"tpack/internal/observability"
)

// Extractor scans one package's source tree and collects declared and
// referenced entities. Strategy is selected by file extension: .py files get
// a structured tree-sitter parse, .talon files a line-oriented scan. A .py
// file that fails structured parsing degrades to a textual reference scan
// and is reported as a warning, never a fatal error.
type Extractor struct {
	lang         *sitter.Language
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func New(excludeDirs, excludeFiles []string) (*Extractor, error) {
	e := &Extractor{
		lang: sitter.NewLanguage(tree_sitter_python.Language()),
	}

	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", pattern, err)
		}
		e.excludeDirs = append(e.excludeDirs, g)
	}
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", pattern, err)
		}
		e.excludeFiles = append(e.excludeFiles, g)
	}

	return e, nil
}

// ScanPackage walks the package root and extracts entities from every source
// file. Unreadable roots are fatal for the package; individual file issues
// degrade to warnings.
func (e *Extractor) ScanPackage(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "stat package root")
	}
	if !info.IsDir() {
		return nil, errors.New(errors.CodeIOFailure, fmt.Sprintf("not a directory: %s", root))
	}

	res := newResult()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := filepath.Base(path)
		if d.IsDir() {
			for _, g := range e.excludeDirs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			return nil
		}

		for _, g := range e.excludeFiles {
			if g.Match(base) {
				return nil
			}
		}

		switch filepath.Ext(path) {
		case ".py":
			res.ScriptFiles++
			return e.scanScript(path, res)
		case ".talon":
			res.TalonFiles++
			return e.scanTalon(path, res)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "walk package tree")
	}

	return res, nil
}

func (e *Extractor) scanScript(path string, res *Result) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIOFailure, "read source file")
	}

	start := time.Now()
	defer func() {
		observability.ExtractionDuration.WithLabelValues("python").Observe(time.Since(start).Seconds())
	}()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.lang)

	tree := parser.Parse(content, nil)
	if tree == nil {
		res.Warnings = append(res.Warnings, errors.Warningf(errors.WarnParseDegraded,
			"%s: structured parse failed, fell back to textual scan", path))
		scanDegraded(content, res)
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		res.Warnings = append(res.Warnings, errors.Warningf(errors.WarnParseDegraded,
			"%s: syntax errors, fell back to textual scan", path))
		scanDegraded(content, res)
		return nil
	}

	px := &pythonExtractor{source: content}
	px.walk(root, res)
	return nil
}

func (e *Extractor) scanTalon(path string, res *Result) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIOFailure, "read talon file")
	}

	start := time.Now()
	defer func() {
		observability.ExtractionDuration.WithLabelValues("talon").Observe(time.Since(start).Seconds())
	}()

	scanTalonSource(content, res)
	return nil
}
