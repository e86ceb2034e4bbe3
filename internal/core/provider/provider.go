package provider

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"recipe-aggregator/internal/pkg/common"
)

// providerStatusError wraps a non-200 upstream response. Upstream 4xx
// and 5xx alike surface to the client as a 502 so provider quota or
// auth problems are not mistaken for client errors.
func providerStatusError(name string, resp *resty.Response) *common.CustomError {
	return common.NewError(
		common.ErrCodeProviderFailure,
		fmt.Sprintf("%s returned status %d", name, resp.StatusCode()),
		http.StatusBadGateway,
		fmt.Errorf("%s: status %d: %s", name, resp.StatusCode(), truncate(resp.String(), 500)),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
