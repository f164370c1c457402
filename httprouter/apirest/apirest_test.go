package apirest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/test/testcommon/testutil"
)

var errTest = APIerror{Code: 4000, HTTPstatus: HTTPstatusNotFound, Err: errors.New("thing not found")}

func TestRouterWithAPI(t *testing.T) {
	r := httprouter.HTTProuter{}
	rng := testutil.NewRandom(124)
	port := 23000 + rng.RandomIntn(1024)
	url := fmt.Sprintf("http://127.0.0.1:%d/api", port)
	qt.Assert(t, r.Init("127.0.0.1", port), qt.IsNil)
	t.Cleanup(func() { r.Close() })

	api, err := NewAPI(&r, "/api/")
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, api.RegisterMethod("/hello/{name}", "GET", MethodAccessTypePublic,
		func(msg *APIdata, ctx *httprouter.HTTPContext) error {
			return SendJSON(ctx, map[string]string{"hello": ctx.URLParam("name")})
		}), qt.IsNil)
	qt.Assert(t, api.RegisterMethod("/echo", "POST", MethodAccessTypePublic,
		func(msg *APIdata, ctx *httprouter.HTTPContext) error {
			return ctx.Send(msg.Data, HTTPstatusOK)
		}), qt.IsNil)
	qt.Assert(t, api.RegisterMethod("/missing/{id}", "GET", MethodAccessTypePublic,
		func(msg *APIdata, ctx *httprouter.HTTPContext) error {
			return errTest.With(ctx.URLParam("id"))
		}), qt.IsNil)
	qt.Assert(t, api.RegisterMethod("/admin", "POST", MethodAccessTypeAdmin,
		func(msg *APIdata, ctx *httprouter.HTTPContext) error {
			return ctx.Send(nil, HTTPstatusNoContent)
		}), qt.IsNil)
	qt.Assert(t, api.RegisterMethod("/bad", "GET", "private", nil), qt.IsNotNil)

	status, body := doRequest(t, url+"/hello/john", "", "GET", nil)
	qt.Assert(t, status, qt.Equals, HTTPstatusOK)
	qt.Assert(t, string(body), qt.Equals, "{\"hello\":\"john\"}\n")

	status, body = doRequest(t, url+"/echo", "", "POST", []byte("ping"))
	qt.Assert(t, status, qt.Equals, HTTPstatusOK)
	qt.Assert(t, string(body), qt.Equals, "ping\n")

	status, body = doRequest(t, url+"/missing/7", "", "GET", nil)
	qt.Assert(t, status, qt.Equals, HTTPstatusNotFound)
	qt.Assert(t, string(body), qt.Equals, "{\"error\":\"thing not found: 7\",\"code\":4000}\n")

	// admin methods are disabled until a token is set
	status, _ = doRequest(t, url+"/admin", "", "POST", nil)
	qt.Assert(t, status, qt.Equals, http.StatusUnauthorized)

	token := uuid.New().String()
	api.SetAdminToken(token)
	status, body = doRequest(t, url+"/admin", "wrong", "POST", nil)
	qt.Assert(t, status, qt.Equals, http.StatusUnauthorized)
	qt.Assert(t, string(body), qt.Contains, "admin token not valid")
	status, _ = doRequest(t, url+"/admin", token, "POST", nil)
	qt.Assert(t, status, qt.Equals, HTTPstatusNoContent)
}

func TestNewAPIBaseRoute(t *testing.T) {
	_, err := NewAPI(&httprouter.HTTProuter{}, "api")
	qt.Assert(t, err, qt.ErrorMatches, "invalid base route.*")
	_, err = NewAPI(nil, "/api")
	qt.Assert(t, err, qt.IsNotNil)
}

func doRequest(t *testing.T, url, authToken, method string, body []byte) (int, []byte) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	qt.Assert(t, err, qt.IsNil)
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	resp, err := http.DefaultClient.Do(req)
	qt.Assert(t, err, qt.IsNil)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	return resp.StatusCode, respBody
}
