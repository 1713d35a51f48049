package web

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zeptools/gw-multids/routekey"
	"github.com/zeptools/gw-multids/rw"
)

// HandlerWrapper has Wrap method which acts as a middleware by wrapping an http.Handler
// prepending and appending some additional logic wrapping the handler's ServeHTTP(w,r)
// and then returns a new http.Handler which can wrap another or can be wrapped by another
type HandlerWrapper interface {
	Wrap(http.Handler) http.Handler
}

// HandlerWrapperFunc adapts a plain middleware func, e.g. a mux.MiddlewareFunc
type HandlerWrapperFunc func(http.Handler) http.Handler

func (f HandlerWrapperFunc) Wrap(h http.Handler) http.Handler {
	return f(h)
}

// Wrap nests handler in wrappers.
// Pre-actions run in order wrappers[0] -> ... -> wrappers[n-1], post-actions in reverse.
func Wrap(handler http.Handler, wrappers ...HandlerWrapper) http.Handler {
	wrapped := handler
	for i := len(wrappers) - 1; i >= 0; i-- {
		wrapped = wrappers[i].Wrap(wrapped)
	}
	return wrapped
}

// DataSourceHeader carries the routing key of a request
const DataSourceHeader = "X-Datasource"

// DataSourceKeyWrapper gives every request its own routing key holder,
// set from the request header when present.
// The key is released when the handler returns or panics.
type DataSourceKeyWrapper struct {
	Header string // DataSourceHeader when empty
}

func (dw DataSourceKeyWrapper) Wrap(inner http.Handler) http.Handler {
	header := dw.Header
	if header == "" {
		header = DataSourceHeader
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, holder := routekey.WithHolder(r.Context())
		if key := strings.TrimSpace(r.Header.Get(header)); key != "" {
			release := holder.Acquire(key)
			defer release()
		}
		inner.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoverWrapper turns a panic into a 500 JSON error
func RecoverWrapper(logger *log.Logger) HandlerWrapper {
	if logger == nil {
		logger = log.Default()
	}
	return HandlerWrapperFunc(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					WriteSimpleErrorJSON(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			inner.ServeHTTP(w, r)
		})
	})
}

// AccessLogWrapper logs one line per request with the routing key it carried
func AccessLogWrapper(logger *log.Logger, header string) HandlerWrapper {
	if logger == nil {
		logger = log.Default()
	}
	if header == "" {
		header = DataSourceHeader
	}
	return HandlerWrapperFunc(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := rw.NewRecorder(w)
			inner.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"datasource", r.Header.Get(header),
				"status", rec.Status(),
				"bytes", rec.BytesWritten(),
				"elapsed", time.Since(start),
			)
		})
	})
}
