package demo

import (
	"time"

	"github.com/junioryono/wired"
)

// DefaultLimit is applied to listings without a limit.
const DefaultLimit = 20

// PaginationPipe fills in the listing limit. It runs after the Query pipe.
type PaginationPipe struct{}

var PaginationPipeClass = wired.PipeClass[PaginationPipe]()

func (PaginationPipe) Transform(_ *wired.ExecutionContext, input []any, _ ...*wired.Schema) ([]any, error) {
	if len(input) > 0 {
		if q, ok := input[0].(*ListQuery); ok && q.Limit == 0 {
			q.Limit = DefaultLimit
		}
	}
	return input, nil
}

// TimingInterceptor logs the duration of every request.
type TimingInterceptor struct {
	Logger wired.Logger `inject:"APP_LOGGER"`
}

var TimingInterceptorClass = wired.InterceptorClass[TimingInterceptor]()

func (i *TimingInterceptor) Intercept(ctx *wired.ExecutionContext) (wired.LeaveFunc, error) {
	start := time.Now()
	r := ctx.SwitchToHTTP().Request()
	return func() error {
		i.Logger.Debug("request handled",
			"requestId", ctx.RequestID(),
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
		return nil
	}, nil
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
	IP     string `json:"ip"`
	Uptime string `json:"uptime"`
}

// StartedToken provides the time the application was wired.
const StartedToken = wired.Name("STARTED_AT")

type HealthController struct {
	Started time.Time `inject:"STARTED_AT"`
}

var HealthControllerClass = wired.Controller[HealthController]("health",
	wired.Get("", "Check", wired.UsePipes(wired.IP())),
)

func (c *HealthController) Check(ip string) Health {
	return Health{Status: "ok", IP: ip, Uptime: time.Since(c.Started).Truncate(time.Second).String()}
}

// CommonModule installs the global interceptor and exception filter and
// serves /health.
func CommonModule() *wired.Module {
	return wired.NewModule("common",
		wired.IsGlobal(),
		wired.Providers(
			wired.UseClass(wired.AppInterceptor, TimingInterceptorClass),
			wired.UseClass(wired.AppFilter, wired.HTTPExceptionFilterClass),
			wired.UseFactory(StartedToken, func(...any) (any, error) {
				return time.Now(), nil
			}),
		),
		wired.Controllers(HealthControllerClass),
	)
}
