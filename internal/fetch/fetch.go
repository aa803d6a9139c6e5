package fetch

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/metrics"
	"github.com/davekyte/docdock/internal/source"
)

// ProgressFunc receives byte progress from the network strategy. total is -1
// when the transport did not declare a length. Calls arrive in
// non-decreasing order of received bytes.
type ProgressFunc func(received, total int64)

// Strategy acquires a descriptor's content and makes it available at a local
// path. Non-network strategies complete synchronously, ignore progress, and
// report FromCache=false.
type Strategy interface {
	Fetch(ctx context.Context, src data.SourceDescriptor, dest string, progress ProgressFunc) (*data.ResolvedSource, error)
}

// Dispatcher routes an effective URI to exactly one acquisition strategy.
type Dispatcher struct {
	network Strategy
	asset   Strategy
	inline  Strategy
	local   Strategy
}

func NewDispatcher(client *http.Client, assets fs.FS) *Dispatcher {
	return &Dispatcher{
		network: NewHTTPFetcher(client),
		asset:   NewAssetCopier(assets),
		inline:  InlineDecoder{},
		local:   LocalPassthrough{},
	}
}

// Select classifies the URI and returns the matching strategy.
func (d *Dispatcher) Select(uri string) Strategy {
	scheme := source.Classify(uri)
	metrics.StrategySelected.WithLabelValues(scheme.String()).Inc()

	switch scheme {
	case source.SchemeHTTP:
		return d.network
	case source.SchemeAsset:
		return d.asset
	case source.SchemeData:
		return d.inline
	default:
		return d.local
	}
}
