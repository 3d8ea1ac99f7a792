package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID", "Accept", "Origin"}
	corsExpose  = []string{"X-Request-ID", "WWW-Authenticate"}
	corsMaxAge  = 24 * time.Hour
)

// corsPolicy answers cross-origin requests from browser clients served
// elsewhere. With no origins, or "*", every origin is allowed.
type corsPolicy struct {
	origins []string

	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(origins []string) *corsPolicy {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return &corsPolicy{
		origins:       cleaned,
		allowMethods:  strings.Join(corsMethods, ", "),
		allowHeaders:  strings.Join(corsHeaders, ", "),
		exposeHeaders: strings.Join(corsExpose, ", "),
		maxAge:        strconv.Itoa(int(corsMaxAge.Seconds())),
	}
}

func (p *corsPolicy) anyOrigin() bool {
	return len(p.origins) == 0 || slices.Contains(p.origins, "*")
}

// allowed reports whether origin may call the API. Requests without an
// Origin header are not cross-origin.
func (p *corsPolicy) allowed(origin string) bool {
	return origin == "" || p.anyOrigin() || slices.Contains(p.origins, origin)
}

// apply sets the response headers for origin. It returns false and sets
// nothing when the origin is not allowed.
func (p *corsPolicy) apply(set func(name, value string), origin string) bool {
	if !p.allowed(origin) {
		return false
	}
	if p.anyOrigin() {
		set("Access-Control-Allow-Origin", "*")
	} else if origin != "" {
		set("Access-Control-Allow-Origin", origin)
		set("Vary", "Origin")
	}
	set("Access-Control-Allow-Methods", p.allowMethods)
	set("Access-Control-Allow-Headers", p.allowHeaders)
	set("Access-Control-Expose-Headers", p.exposeHeaders)
	set("Access-Control-Max-Age", p.maxAge)
	return true
}

// middleware adds CORS headers to huma responses.
func (p *corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	p.apply(ctx.SetHeader, ctx.Header("Origin"))
	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// preflight answers OPTIONS on the mux; huma only routes registered
// methods, so preflights never reach the middleware.
func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request) {
	if !p.apply(w.Header().Set, r.Header.Get("Origin")) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkOrigin is the websocket upgrader's origin check.
func (p *corsPolicy) checkOrigin(r *http.Request) bool {
	return p.allowed(strings.TrimRight(r.Header.Get("Origin"), "/"))
}
