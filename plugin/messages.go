package plugin

import (
	"github.com/evanw/esbuild/pkg/api"

	"esvelte/internal/diag"
	"esvelte/internal/pipeline"
)

func toLoadResult(res pipeline.LoadResult) api.OnLoadResult {
	out := api.OnLoadResult{
		Warnings:   toMessages(res.Warnings),
		Errors:     toMessages(res.Errors),
		WatchFiles: res.WatchFiles,
	}
	if res.Failed() {
		return out
	}
	contents := res.Contents
	out.Contents = &contents
	switch res.Loader {
	case pipeline.LoaderCSS:
		out.Loader = api.LoaderCSS
	default:
		out.Loader = api.LoaderJS
	}
	return out
}

func toMessages(ds []diag.Diagnostic) []api.Message {
	if len(ds) == 0 {
		return nil
	}
	out := make([]api.Message, 0, len(ds))
	for _, d := range ds {
		msg := api.Message{ID: string(d.Code), Text: d.Text}
		if l := d.Location; l != nil {
			msg.Location = &api.Location{
				File:     l.File,
				Line:     l.Line,
				Column:   l.Column,
				Length:   l.Length,
				LineText: l.LineText,
			}
		}
		out = append(out, msg)
	}
	return out
}
