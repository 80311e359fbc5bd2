// Package api exposes the studio over HTTP: analyses, generation requests,
// status polling, image download and credit balance. Handlers decode and
// validate JSON, call the studio service and map its errors to status
// codes without leaking internal detail.
package api
