package downloader

import (
	"context"

	"github.com/pokerjest/rbit/internal/torrent"
)

// Downloader is the submission flow of a torrent WebUI: log in, add one
// torrent with that session, log out.
type Downloader interface {
	Login(ctx context.Context) (Session, error)
	AddTorrent(ctx context.Context, session Session, input torrent.Input) (SubmissionResult, error)
	Logout(ctx context.Context, session Session) error
}

// Transport sends a prepared request. It is the only place network I/O happens.
type Transport interface {
	Do(ctx context.Context, req *PreparedRequest) (*Response, error)
}

// Observer is told about every request the client handles.
type Observer interface {
	// Exchanged is called after a request was sent and a response received,
	// whatever its status.
	Exchanged(req *PreparedRequest, resp *Response)
	// Previewed is called in dry-run mode instead of sending req.
	Previewed(req *PreparedRequest)
}

type nopObserver struct{}

func (nopObserver) Exchanged(*PreparedRequest, *Response) {}
func (nopObserver) Previewed(*PreparedRequest)            {}
