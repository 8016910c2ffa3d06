package cloudmetrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// RegisterInstrumentation exposes the default prometheus registry on
// :2112 for binaries that do not mount the HTTP API.
func RegisterInstrumentation(lc fx.Lifecycle) {
	http.Handle("/metrics", promhttp.Handler())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				_ = http.ListenAndServe(":2112", nil)
			}()
			return nil
		},
	})
}
