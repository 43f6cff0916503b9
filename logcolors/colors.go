package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"

	// Bright variants for more color variety
	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
)

// Cache-related log prefixes
const (
	LogCache        = Blue + "[Cache]" + Reset
	LogCacheStreams = Cyan + "[Cache:Streams]" + Reset
)

// Resolution log prefixes
const (
	LogResolver = BrightCyan + "[Resolver]" + Reset
	LogPool     = BrightBlue + "[Pool]" + Reset
	LogExecutor = BrightMagenta + "[Executor]" + Reset
)

// Service log prefixes
const (
	LogCatalog   = Purple + "[Catalog]" + Reset
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogStats     = Yellow + "[Stats]" + Reset
	LogServer    = BrightGreen + "[Server]" + Reset
)

// EndpointPrefix returns a colored prefix for a stream backend endpoint
func EndpointPrefix(host string) string {
	return BrightBlue + "[Endpoint:" + host + "]" + Reset
}
