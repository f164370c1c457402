package httprouter

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	reuse "github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.vocdoni.io/tokenvote/log"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/http2"
)

const (
	// DefaultContentType is the content type used when a handler does not set one.
	DefaultContentType = "application/json"

	desiredSoMaxConn = 4096
	requestTimeout   = 30 * time.Second
)

// HTTProuter is a thread-safe http(s) router based on go-chi. Handlers are
// grouped in namespaces; each namespace decodes the incoming requests and
// decides whether they are authorized for the handler access type.
type HTTProuter struct {
	Mux        *chi.Mux
	TLSconfig  *tls.Config
	TLSdomain  string
	TLSdirCert string
	// PrometheusID, if set, enables the go-chi prometheus request metrics
	// under that name.
	PrometheusID string

	address        net.Addr
	server         *http.Server
	namespaces     map[string]RouterNamespace
	namespacesLock sync.RWMutex
}

// AuthAccessType is the kind of authorization a handler requires.
type AuthAccessType int

const (
	AccessTypePublic AuthAccessType = iota
	AccessTypeAdmin
)

// RouterNamespace is implemented by the request processors of the router.
type RouterNamespace interface {
	AuthorizeRequest(data any, accessType AuthAccessType) (valid bool, err error)
	ProcessData(req *http.Request) (data any, err error)
}

// RouterHandlerFn is the function signature for the HTTProuter handlers.
type RouterHandlerFn = func(msg Message)

// Init configures the router and starts serving at host:port.
func (r *HTTProuter) Init(host string, port int) error {
	r.namespaces = make(map[string]RouterNamespace, 4)
	ln, err := reuse.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	if n := somaxconn(); n < desiredSoMaxConn {
		log.Warnf("operating system SOMAXCONN is smaller than recommended (%d). "+
			"Consider increasing it: echo %d | sudo tee /proc/sys/net/core/somaxconn", n, desiredSoMaxConn)
	}
	r.Mux = newMux(r.PrometheusID)

	if r.TLSdomain != "" {
		log.Infof("fetching letsencrypt TLS certificate for %s", r.TLSdomain)
		s, m := r.tlsServer(host, port)
		if err := http2.ConfigureServer(s, nil); err != nil {
			return err
		}
		r.server = s
		go func() {
			if err := s.ServeTLS(ln, "", ""); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}()
		if _, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: r.TLSdomain}); err != nil {
			return fmt.Errorf("cannot get letsencrypt TLS certificate: %w", err)
		}
		log.Infof("router ready at https://%s", ln.Addr())
	} else {
		s := &http.Server{
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      requestTimeout + 5*time.Second,
			IdleTimeout:       10 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           r.Mux,
		}
		if err := http2.ConfigureServer(s, nil); err != nil {
			return err
		}
		r.server = s
		go func() {
			if err := s.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}()
		log.Infof("router ready at http://%s", ln.Addr())
	}
	r.address = ln.Addr()
	return nil
}

func newMux(prometheusID string) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	if prometheusID != "" {
		mux.Use(chiprometheus.NewMiddleware(prometheusID))
	}
	mux.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  stdLogger{},
		NoColor: true,
	}))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Heartbeat("/ping"))
	mux.Use(middleware.ThrottleBacklog(1000, 10000, requestTimeout))
	mux.Use(middleware.Timeout(requestTimeout))
	mux.Use(middleware.Compress(5))
	mux.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(*http.Request, string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// the cors handler does not reply 200 to preflight requests on its own
	mux.Options("/*", func(http.ResponseWriter, *http.Request) {})
	return mux
}

// Close stops the http server.
func (r *HTTProuter) Close() error {
	if r.server == nil {
		return nil
	}
	return r.server.Close()
}

// ExposePrometheusEndpoint serves at path the metrics registered both in
// prometheus and in VictoriaMetrics.
func (r *HTTProuter) ExposePrometheusEndpoint(path string) {
	r.AddRawHTTPHandler(path, http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		// plaintext is required to append the VictoriaMetrics output
		req.Header.Del("Accept-Encoding")
		promhttp.Handler().ServeHTTP(w, req)
		metrics.WritePrometheus(w, false)
	})
	log.Infof("prometheus metrics ready at: %s", path)
}

// Address returns the network address the router is listening at.
func (r *HTTProuter) Address() net.Addr {
	return r.address
}

// AddNamespace registers the RouterNamespace implementation for id.
func (r *HTTProuter) AddNamespace(id string, rns RouterNamespace) {
	log.Infof("added namespace %s", id)
	r.namespacesLock.Lock()
	defer r.namespacesLock.Unlock()
	r.namespaces[id] = rns
}

func (r *HTTProuter) getNamespace(id string) (RouterNamespace, bool) {
	r.namespacesLock.RLock()
	defer r.namespacesLock.RUnlock()
	rns, ok := r.namespaces[id]
	return rns, ok
}

// AddAdminHandler adds a handler which the namespace must authorize as admin.
func (r *HTTProuter) AddAdminHandler(namespaceID, pattern, HTTPmethod string, handler RouterHandlerFn) {
	log.Infow("added handler", "type", "admin", "namespace", namespaceID, "pattern", pattern)
	r.Mux.MethodFunc(HTTPmethod, pattern, r.routerHandler(namespaceID, AccessTypeAdmin, handler))
}

// AddPublicHandler adds a handler open to every request.
func (r *HTTProuter) AddPublicHandler(namespaceID, pattern, HTTPmethod string, handler RouterHandlerFn) {
	log.Infow("added handler", "type", "public", "namespace", namespaceID, "pattern", pattern)
	r.Mux.MethodFunc(HTTPmethod, pattern, r.routerHandler(namespaceID, AccessTypePublic, handler))
}

// AddRawHTTPHandler adds a standard net/http handler, outside of any namespace.
func (r *HTTProuter) AddRawHTTPHandler(pattern, HTTPmethod string, handler http.HandlerFunc) {
	log.Infow("added handler", "type", "raw", "pattern", pattern)
	r.Mux.MethodFunc(HTTPmethod, pattern, handler)
}

func (r *HTTProuter) routerHandler(namespaceID string, accessType AuthAccessType,
	handlerFn RouterHandlerFn) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()

		ns, ok := r.getNamespace(namespaceID)
		if !ok {
			log.Errorf("namespace %s is not defined", namespaceID)
			http.Error(w, "namespace not found", http.StatusInternalServerError)
			return
		}
		data, err := ns.ProcessData(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if ok, err := ns.AuthorizeRequest(data, accessType); !ok {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		hc := &HTTPContext{Request: req, Writer: w, sent: make(chan struct{})}
		go handlerFn(Message{
			Data:      data,
			TimeStamp: time.Now(),
			Context:   hc,
			Path:      strings.Split(req.URL.Path, "/")[1:],
		})
		// every handler must reply, even on failure
		select {
		case <-hc.sent:
		case <-req.Context().Done():
		}
	}
}

func (r *HTTProuter) tlsServer(host string, port int) (*http.Server, *autocert.Manager) {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(r.TLSdomain),
		Cache:      autocert.DirCache(r.TLSdirCert),
	}
	if r.TLSconfig == nil {
		r.TLSconfig = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	r.TLSconfig.GetCertificate = m.GetCertificate
	r.TLSconfig.NextProtos = append(r.TLSconfig.NextProtos, acme.ALPNProto)
	return &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		TLSConfig:         r.TLSconfig,
		Handler:           r.Mux,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}, m
}

func somaxconn() int {
	content, err := os.ReadFile("/proc/sys/net/core/somaxconn")
	if err != nil {
		return syscall.SOMAXCONN
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return syscall.SOMAXCONN
	}
	return n
}

// stdLogger sends the chi request log lines to the debug level.
type stdLogger struct{}

func (stdLogger) Print(v ...any) { log.Debug(fmt.Sprint(v...)) }
