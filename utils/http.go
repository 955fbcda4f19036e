// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the default client for calls to the game API. Long enough for a
// watch request held at the server's maximum.
var HTTPClient = &http.Client{
	Timeout: 35 * time.Second,
}
