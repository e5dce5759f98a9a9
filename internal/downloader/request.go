package downloader

import (
	"net/http"
	"net/url"

	"github.com/pokerjest/rbit/internal/config"
	"github.com/pokerjest/rbit/internal/errs"
	"github.com/pokerjest/rbit/internal/torrent"
)

// WebUI API endpoints.
const (
	LoginPath  = "/api/v2/auth/login"
	AddPath    = "/api/v2/torrents/add"
	LogoutPath = "/api/v2/auth/logout"
)

// Form field names of the add endpoint.
const (
	FieldURLs     = "urls"
	FieldTorrents = "torrents"
	FieldSavePath = "savepath"
)

type BodyKind int

const (
	EmptyBody BodyKind = iota
	FormBody
	MultipartBody
)

func (k BodyKind) String() string {
	switch k {
	case FormBody:
		return "application/x-www-form-urlencoded"
	case MultipartBody:
		return "multipart/form-data"
	default:
		return "empty"
	}
}

type Field struct {
	Name  string
	Value string
}

// FilePart is the single file of a multipart body.
type FilePart struct {
	FieldName string
	Filename  string
	Content   []byte
}

type Body struct {
	Kind   BodyKind
	Fields []Field
	File   *FilePart
}

// Values returns the text fields of the body.
func (b Body) Values() url.Values {
	values := url.Values{}
	for _, f := range b.Fields {
		values.Add(f.Name, f.Value)
	}
	return values
}

// Get returns the first text field called name.
func (b Body) Get(name string) (string, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// PreparedRequest is a fully built request that has not been sent.
type PreparedRequest struct {
	Method string
	URL    string
	Header []Field
	Body   Body
}

// HeaderValue returns the value of the header called name, or "".
func (r *PreparedRequest) HeaderValue(name string) string {
	for _, h := range r.Header {
		if http.CanonicalHeaderKey(h.Name) == http.CanonicalHeaderKey(name) {
			return h.Value
		}
	}
	return ""
}

// BuildLogin builds the login request. It needs no session.
func BuildLogin(opts config.Options) *PreparedRequest {
	return &PreparedRequest{
		Method: http.MethodPost,
		URL:    opts.Host + LoginPath,
		Header: baseHeader(opts.Host),
		Body: Body{
			Kind: FormBody,
			Fields: []Field{
				{Name: "username", Value: opts.Username},
				{Name: "password", Value: opts.Password},
			},
		},
	}
}

// BuildAdd builds the add-torrent request. Magnet links are sent as a
// urlencoded form, torrent files as multipart; the WebUI rejects the other
// combination.
func BuildAdd(opts config.Options, session Session, input torrent.Input) (*PreparedRequest, error) {
	req := &PreparedRequest{
		Method: http.MethodPost,
		URL:    opts.Host + AddPath,
		Header: withSession(baseHeader(opts.Host), session),
	}

	switch in := input.(type) {
	case torrent.Magnet:
		req.Body = Body{
			Kind:   FormBody,
			Fields: []Field{{Name: FieldURLs, Value: in.URI}},
		}
	case torrent.FileUpload:
		req.Body = Body{
			Kind: MultipartBody,
			File: &FilePart{
				FieldName: FieldTorrents,
				Filename:  in.Filename,
				Content:   in.Content,
			},
		}
	default:
		return nil, errs.Input(nil, "unsupported torrent input %T", input)
	}

	if opts.SavePath != "" {
		req.Body.Fields = append(req.Body.Fields, Field{Name: FieldSavePath, Value: opts.SavePath})
	}

	return req, nil
}

// BuildLogout builds the request that ends session on the WebUI.
func BuildLogout(opts config.Options, session Session) *PreparedRequest {
	return &PreparedRequest{
		Method: http.MethodPost,
		URL:    opts.Host + LogoutPath,
		Header: withSession(baseHeader(opts.Host), session),
	}
}

// The WebUI's CSRF protection compares Referer and Origin with its own host.
func baseHeader(host string) []Field {
	return []Field{
		{Name: "Referer", Value: host + "/"},
		{Name: "Origin", Value: originOf(host)},
	}
}

func withSession(header []Field, session Session) []Field {
	if cookie := session.CookieHeader(); cookie != "" {
		header = append(header, Field{Name: "Cookie", Value: cookie})
	}
	return header
}

func originOf(host string) string {
	u, err := url.Parse(host)
	if err != nil {
		return host
	}
	return u.Scheme + "://" + u.Host
}
