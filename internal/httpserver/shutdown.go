package httpserver

import "time"

// ShutdownTimeout controls how long to wait for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second

// UploadTimeout bounds reading a request body and writing its response.
var UploadTimeout = 10 * time.Minute
