// Package client is the Go SDK for the fasttq manager HTTP API. It mirrors
// the API surface one method per endpoint and decodes responses into the
// types package. Non-2xx responses surface as *APIError so callers can
// branch on the status code; IsNotFound covers the common case.
package client
