package downloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/pokerjest/rbit/internal/config"
	"github.com/pokerjest/rbit/internal/errs"
	"github.com/pokerjest/rbit/internal/torrent"
	log "github.com/sirupsen/logrus"
)

// qBittorrent answers 200 with this body when it refuses a login or a torrent.
const failsBody = "Fails."

type QBittorrentClient struct {
	opts      config.Options
	transport Transport
	observer  Observer
}

var _ Downloader = (*QBittorrentClient)(nil)

type ClientOption func(*QBittorrentClient)

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(q *QBittorrentClient) {
		q.transport = t
	}
}

func NewQBittorrentClient(opts config.Options, observer Observer, options ...ClientOption) *QBittorrentClient {
	q := &QBittorrentClient{
		opts:     opts,
		observer: observer,
	}
	for _, opt := range options {
		opt(q)
	}
	if q.observer == nil {
		q.observer = nopObserver{}
	}
	if q.transport == nil {
		q.transport = NewRestyTransport(opts.Timeout)
	}
	return q
}

// dispatch is the single terminal step of every request: preview it in
// dry-run mode, send it otherwise. A nil response means nothing was sent.
func (q *QBittorrentClient) dispatch(ctx context.Context, op string, req *PreparedRequest) (*Response, error) {
	if q.opts.DryRun {
		q.observer.Previewed(req)
		return nil, nil
	}

	resp, err := q.transport.Do(ctx, req)
	if err != nil {
		return nil, errs.ClassifyTransport(op, err)
	}
	q.observer.Exchanged(req, resp)
	return resp, nil
}

func (q *QBittorrentClient) Login(ctx context.Context) (Session, error) {
	if !q.opts.Authenticated() {
		log.Debug("No credentials configured, skipping login")
		return Session{}, nil
	}

	resp, err := q.dispatch(ctx, "login", BuildLogin(q.opts))
	if err != nil {
		return Session{}, err
	}
	if resp == nil {
		return placeholderSession(), nil
	}

	if !resp.IsSuccess() {
		return Session{}, errs.Auth(resp.StatusCode, resp.Body, "login rejected with status %s", resp.Status)
	}
	if strings.TrimSpace(resp.Body) == failsBody {
		return Session{}, errs.Auth(resp.StatusCode, resp.Body, "login failed: invalid username or password")
	}

	cookie := resp.Cookie(SessionCookie)
	if cookie == nil {
		return Session{}, errs.Auth(resp.StatusCode, resp.Body, "login response carried no %s cookie", SessionCookie)
	}

	log.Debugf("Logged in to %s", q.opts.Host)
	return Session{
		CookieName:  cookie.Name,
		CookieValue: cookie.Value,
		Status:      resp.StatusCode,
	}, nil
}

func (q *QBittorrentClient) AddTorrent(ctx context.Context, session Session, input torrent.Input) (SubmissionResult, error) {
	req, err := BuildAdd(q.opts, session, input)
	if err != nil {
		return SubmissionResult{}, err
	}

	log.Debugf("Adding %s", input.Describe())
	resp, err := q.dispatch(ctx, "add torrent", req)
	if err != nil {
		return SubmissionResult{}, err
	}
	if resp == nil {
		return SubmissionResult{DryRun: true}, nil
	}

	if !resp.IsSuccess() {
		return SubmissionResult{}, errs.Submit(resp.StatusCode, resp.Body, "add torrent rejected with status %s", resp.Status)
	}
	if strings.TrimSpace(resp.Body) == failsBody {
		return SubmissionResult{}, errs.Submit(resp.StatusCode, resp.Body, "add torrent refused by qBittorrent")
	}

	return SubmissionResult{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

// Logout ends session on the WebUI. Anonymous sessions have nothing to end.
func (q *QBittorrentClient) Logout(ctx context.Context, session Session) error {
	if session.Anonymous() {
		return nil
	}

	resp, err := q.dispatch(ctx, "logout", BuildLogout(q.opts, session))
	if err != nil {
		return err
	}
	if resp != nil && !resp.IsSuccess() {
		return fmt.Errorf("logout failed. Status: %d, Response: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
