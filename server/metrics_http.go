package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "fee_manager"

const (
	labelPath   = "path"
	labelMethod = "method"
	labelCode   = "code"
)

// InboundHTTPMetrics stores the pointers to inbound http metrics
type InboundHTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewInboundHTTPMetrics registers the inbound request metrics on r.
func NewInboundHTTPMetrics(r prometheus.Registerer) *InboundHTTPMetrics {
	return &InboundHTTPMetrics{
		requestsTotal: promauto.With(r).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "inbound_http_requests_total",
				Help:      "the total http requests received",
			}, []string{labelPath, labelMethod, labelCode},
		),
		requestDuration: promauto.With(r).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "inbound_http_request_duration_milliseconds",
				Help:      "the total milliseconds taken for a response",
				Buckets:   prometheus.ExponentialBuckets(50, 3, 6),
			}, []string{labelPath, labelMethod}),
	}
}

// httpStateRecorder wraps a request
type httpStateRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader implements the ResponseWriter.WriteHeader interface
func (r *httpStateRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware wraps a http handler
type Middleware func(http.Handler) http.Handler

// InboundHTTPMetricMiddleware exports prometheus metrics for the http tier
func InboundHTTPMetricMiddleware(metrics *InboundHTTPMetrics) Middleware {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			start := time.Now()
			recorder := &httpStateRecorder{
				ResponseWriter: rw,
				status:         http.StatusOK,
			}

			handler.ServeHTTP(recorder, req)

			labels := map[string]string{labelPath: metricPath(req), labelMethod: req.Method}

			// only record duration for successful requests
			if recorder.status >= http.StatusOK && recorder.status < http.StatusMultipleChoices {
				metrics.requestDuration.With(labels).Observe(float64(time.Since(start).Milliseconds()))
			}

			labels[labelCode] = strconv.Itoa(recorder.status)
			metrics.requestsTotal.With(labels).Inc()
		})
	}
}

// metricPath collapses each request onto its route family so path
// variables (config names, pubkeys) don't explode label cardinality.
func metricPath(req *http.Request) string {
	path := req.URL.Path
	switch {
	case strings.HasPrefix(path, "/vouch/v2/execution-config"):
		return "/vouch/v2/execution-config"
	case strings.HasPrefix(path, "/commit-boost/v1/mux"):
		return "/commit-boost/v1/mux"
	case strings.HasPrefix(path, pathAdminPrefix+"/default-configs"):
		return pathAdminPrefix + "/default-configs"
	case strings.HasPrefix(path, pathAdminPrefix+"/proposers"):
		return pathAdminPrefix + "/proposers"
	case strings.HasPrefix(path, pathAdminPrefix+"/patterns"):
		return pathAdminPrefix + "/patterns"
	case strings.HasPrefix(path, pathAdminPrefix+"/mux"):
		return pathAdminPrefix + "/mux"
	case strings.HasPrefix(path, pathAdminPrefix+"/tokens"):
		return pathAdminPrefix + "/tokens"
	case path == pathHealth || path == pathMetrics || path == "/":
		return path
	default:
		return "not_recorded"
	}
}
