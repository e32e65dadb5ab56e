package httpapi

// Config configures the HTTP control API.
type Config struct {
	Addr          string
	BasePath      string
	EnableMetrics bool
}
