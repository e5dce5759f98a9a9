// Package report prints what a run did or, in dry-run mode, would have done.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/pokerjest/rbit/internal/config"
	"github.com/pokerjest/rbit/internal/downloader"
	"github.com/pokerjest/rbit/internal/errs"
)

const (
	verbosePrefix = "[verbose]"
	dryRunPrefix  = "[dry-run]"

	maskedValue = "********"
	// longest file content shown in a verbose preview
	previewBytes = 64
)

// Reporter renders request exchanges, dry-run previews and failures.
type Reporter struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

var _ downloader.Observer = (*Reporter)(nil)

func New(out, errOut io.Writer, verbose bool) *Reporter {
	return &Reporter{out: out, errOut: errOut, verbose: verbose}
}

// Exchanged prints the status and body of a sent request when verbose.
func (r *Reporter) Exchanged(req *downloader.PreparedRequest, resp *downloader.Response) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "%s %s %s -> %s\n", verbosePrefix, req.Method, req.URL, resp.Status)
	fmt.Fprintf(r.out, "%s response: %s\n", verbosePrefix, resp.Body)
}

// Previewed prints a request that was built but not sent.
func (r *Reporter) Previewed(req *downloader.PreparedRequest) {
	fmt.Fprintf(r.out, "%s %s %s\n", dryRunPrefix, req.Method, req.URL)

	if r.verbose {
		for _, h := range req.Header {
			fmt.Fprintf(r.out, "%s header: %s: %s\n", dryRunPrefix, h.Name, h.Value)
		}
		fmt.Fprintf(r.out, "%s body: %s\n", dryRunPrefix, req.Body.Kind)
	}

	label := "form"
	if req.Body.Kind == downloader.MultipartBody {
		label = "multipart field"
	}
	for _, f := range req.Body.Fields {
		value := f.Value
		if f.Name == "password" {
			value = maskedValue
		}
		fmt.Fprintf(r.out, "%s %s: %s=%s\n", dryRunPrefix, label, f.Name, value)
	}

	if file := req.Body.File; file != nil {
		fmt.Fprintf(r.out, "%s file: %s filename=%s size=%d bytes\n", dryRunPrefix, file.FieldName, file.Filename, len(file.Content))
		if r.verbose {
			content := file.Content
			if len(content) > previewBytes {
				content = content[:previewBytes]
			}
			fmt.Fprintf(r.out, "%s content: %q\n", dryRunPrefix, content)
		}
	}
}

// Done prints the final line of a successful run.
func (r *Reporter) Done(opts config.Options, result downloader.SubmissionResult) {
	if result.DryRun {
		fmt.Fprintln(r.out, "Dry run: nothing was sent")
		return
	}
	dest := opts.SavePath
	if dest == "" {
		dest = "qBittorrent default"
	}
	fmt.Fprintf(r.out, "Added to qBittorrent (destination: %s)\n", dest)
}

// Failure prints err as a single line. Verbose output adds the raw response
// when the error came from one.
func (r *Reporter) Failure(err error) {
	fmt.Fprintf(r.errOut, "error: %v\n", err)

	var e *errs.Error
	if r.verbose && errors.As(err, &e) && e.HasResponse() {
		fmt.Fprintf(r.errOut, "%s status: %d\n", verbosePrefix, e.Status)
		fmt.Fprintf(r.errOut, "%s response: %s\n", verbosePrefix, e.Body)
	}
}
