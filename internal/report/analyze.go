package report

import (
	"context"
	"os"

	"retcheck/internal/analysis"
	"retcheck/internal/frontend"
)

// AnalyzeSource lowers and analyzes one in-memory listing
func AnalyzeSource(ctx context.Context, path, source string, opts analysis.BatchOptions) (File, error) {
	file, units := load(path, source)
	files, err := analyze(ctx, []File{file}, [][]analysis.Unit{units}, opts)
	return files[0], err
}

// AnalyzeFiles reads, lowers and analyzes listings. All functions of all
// files go through one batch so the worker limit applies across files.
func AnalyzeFiles(ctx context.Context, paths []string, opts analysis.BatchOptions) ([]File, error) {
	files := make([]File, len(paths))
	units := make([][]analysis.Unit, len(paths))
	for i, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			files[i] = File{Path: path, Err: err}
			continue
		}
		files[i], units[i] = load(path, string(source))
	}
	return analyze(ctx, files, units, opts)
}

func load(path, source string) (File, []analysis.Unit) {
	file := File{Path: path, Source: source}
	funcs, err := frontend.LoadString(path, source)
	if err != nil {
		file.Err = err
		return file, nil
	}

	units := make([]analysis.Unit, len(funcs))
	for i := range funcs {
		fn := &funcs[i]
		file.Functions = append(file.Functions, Function{Name: fn.Name, Pos: fn.Pos, Warnings: fn.Warnings})
		units[i] = fn.Unit()
	}
	return file, units
}

func analyze(ctx context.Context, files []File, perFile [][]analysis.Unit, opts analysis.BatchOptions) ([]File, error) {
	var all []analysis.Unit
	for _, units := range perFile {
		all = append(all, units...)
	}

	results, err := analysis.RunBatch(ctx, all, opts)

	next := 0
	for i := range files {
		for j := range files[i].Functions {
			files[i].Functions[j].Result = results[next]
			next++
		}
	}
	return files, err
}
