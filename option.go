package x402

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitwit/x402pay/authorization"
	"github.com/vitwit/x402pay/clients"
	"github.com/vitwit/x402pay/logger"
	"github.com/vitwit/x402pay/metrics"
)

type Option func(*X402)

func WithLogger(l logger.Logger) Option {
	return func(x *X402) {
		x.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(x *X402) {
		x.metrics = r
	}
}

// WithRegisterer sets where the prometheus recorder registers when metrics are
// enabled by config. Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(x *X402) {
		x.registerer = reg
	}
}

func WithSigner(s clients.TypedDataSigner) Option {
	return func(x *X402) {
		x.signer = s
	}
}

func WithWallet(w clients.WalletConfig) Option {
	return func(x *X402) {
		x.wallet = w
	}
}

func WithBalanceReader(b clients.BalanceReader) Option {
	return func(x *X402) {
		x.balances = b
	}
}

func WithBiller(b clients.PrepaidBiller) Option {
	return func(x *X402) {
		x.biller = b
	}
}

func WithBuilder(b *authorization.Builder) Option {
	return func(x *X402) {
		x.builder = b
	}
}
