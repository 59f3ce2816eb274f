package utils

import "os"

// IsDev reports whether the server is running in a development environment.
func IsDev() bool {
	env := os.Getenv("ENVIRONMENT")
	return env == "" || env == "development"
}
