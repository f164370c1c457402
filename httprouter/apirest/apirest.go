package apirest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/log"
)

const (
	// MethodAccessTypePublic for public requests
	MethodAccessTypePublic = "public"
	// MethodAccessTypeAdmin for requests carrying the admin bearer token
	MethodAccessTypeAdmin = "admin"

	namespace         = "apirest"
	bearerPrefix      = "Bearer "
	maxRequestBodyLog = 1024
)

// HTTPstatus* equal http.Status*, simple sugar to avoid importing http everywhere
const (
	HTTPstatusOK                 = http.StatusOK
	HTTPstatusNoContent          = http.StatusNoContent
	HTTPstatusBadRequest         = http.StatusBadRequest
	HTTPstatusNotFound           = http.StatusNotFound
	HTTPstatusConflict           = http.StatusConflict
	HTTPstatusInternalErr        = http.StatusInternalServerError
	HTTPstatusServiceUnavailable = http.StatusServiceUnavailable
)

// API is a REST namespace for the HTTProuter with optional bearer token
// authorization for admin methods.
type API struct {
	router         *httprouter.HTTProuter
	basePath       string
	adminToken     string
	adminTokenLock sync.RWMutex
}

// APIdata is the decoded request. Handlers receive it as Message.Data.
type APIdata struct {
	Data      []byte
	AuthToken string
}

// APIhandler is the signature of the API methods.
type APIhandler = func(*APIdata, *httprouter.HTTPContext) error

// APIerror is returned by handlers to reply with a known error code and
// HTTP status.
type APIerror struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the error message and code. HTTPstatus is not included.
//
// Example output: {"error":"candidate not found","code":4002}
func (e APIerror) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the message of the wrapped error.
func (e APIerror) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e APIerror) Unwrap() error {
	return e.Err
}

// Send replies the request with the JSON encoded error.
func (e APIerror) Send(ctx *httprouter.HTTPContext) error {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		return ctx.Send([]byte("marshal failed"), HTTPstatusInternalErr)
	}
	return ctx.Send(msg, e.HTTPstatus)
}

// Withf returns a copy of the APIerror with the formatted string appended.
func (e APIerror) Withf(format string, args ...any) APIerror {
	return e.With(fmt.Sprintf(format, args...))
}

// With returns a copy of the APIerror with s appended.
func (e APIerror) With(s string) APIerror {
	return APIerror{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the APIerror with err.Error() appended.
func (e APIerror) WithErr(err error) APIerror {
	return e.With(err.Error())
}

// NewAPI registers a new REST namespace on router, serving under baseRoute.
func NewAPI(router *httprouter.HTTProuter, baseRoute string) (*API, error) {
	if router == nil {
		return nil, errors.New("httprouter is nil")
	}
	if len(baseRoute) == 0 || baseRoute[0] != '/' {
		return nil, fmt.Errorf("invalid base route (%s), it must start with /", baseRoute)
	}
	if len(baseRoute) > 1 {
		baseRoute = strings.TrimSuffix(baseRoute, "/")
	}
	a := &API{router: router, basePath: baseRoute}
	router.AddNamespace(namespace, a)
	return a, nil
}

// AuthorizeRequest implements httprouter.RouterNamespace.
func (a *API) AuthorizeRequest(data any, accessType httprouter.AuthAccessType) (bool, error) {
	msg, ok := data.(*APIdata)
	if !ok {
		return false, errors.New("unexpected request data type")
	}
	if accessType != httprouter.AccessTypeAdmin {
		return true, nil
	}
	a.adminTokenLock.RLock()
	defer a.adminTokenLock.RUnlock()
	if a.adminToken == "" || msg.AuthToken != a.adminToken {
		return false, errors.New("admin token not valid")
	}
	return true, nil
}

// ProcessData implements httprouter.RouterNamespace. It reads the request
// body and the bearer token, if any.
func (*API) ProcessData(req *http.Request) (any, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}
	if len(body) > 0 {
		display := string(body)
		if len(display) > maxRequestBodyLog {
			display = display[:maxRequestBodyLog] + "..."
		}
		log.Debugw("api request", "uri", req.URL.RequestURI(), "body", display)
	}
	token := ""
	if auth := req.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, bearerPrefix) {
			return nil, errors.New("authorization header is not a Bearer token")
		}
		token = strings.TrimPrefix(auth, bearerPrefix)
	}
	return &APIdata{Data: body, AuthToken: token}, nil
}

// RegisterMethod adds a handler for pattern, relative to the base route.
// The pattern can contain variables in braces, such as /candidates/{id}.
func (a *API) RegisterMethod(pattern, HTTPmethod string, accessType string, handler APIhandler) error {
	if len(pattern) == 0 || pattern[0] != '/' {
		return fmt.Errorf("pattern %q must start with /", pattern)
	}
	routerHandler := func(msg httprouter.Message) {
		err := handler(msg.Data.(*APIdata), msg.Context)
		if err == nil {
			return
		}
		var apierr APIerror
		if errors.As(err, &apierr) {
			if err := apierr.Send(msg.Context); err != nil {
				log.Warnf("couldn't send apierror: %v", err)
			}
			return
		}
		// unexpected errors are replied in plaintext
		if err := msg.Context.Send([]byte(err.Error()), HTTPstatusInternalErr); err != nil {
			log.Warn(err)
		}
	}

	fullPath := path.Join(a.basePath, pattern)
	switch accessType {
	case MethodAccessTypePublic:
		a.router.AddPublicHandler(namespace, fullPath, HTTPmethod, routerHandler)
	case MethodAccessTypeAdmin:
		a.router.AddAdminHandler(namespace, fullPath, HTTPmethod, routerHandler)
	default:
		return fmt.Errorf("method access type not implemented: %s", accessType)
	}
	return nil
}

// SetAdminToken sets the bearer token required by admin methods. An empty
// token disables them.
func (a *API) SetAdminToken(bearerToken string) {
	a.adminTokenLock.Lock()
	defer a.adminTokenLock.Unlock()
	a.adminToken = bearerToken
}

// SendJSON encodes v as JSON and replies with HTTPstatusOK.
func SendJSON(ctx *httprouter.HTTPContext, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ctx.Send(data, HTTPstatusOK)
}
