/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/template"
)

// CSRFInjector automatically injects CSRF token into template data for all routes
func CSRFInjector() flamego.Handler {
	return func(x csrf.CSRF, data template.Data) {
		data["csrf_token"] = x.Token()
	}
}

// NoCacheHeaders disables caching for all page responses and blocks indexing.
// Lab reports are medical data and must never land in a shared cache.
func NoCacheHeaders() flamego.Handler {
	return func(c flamego.Context) {
		header := c.ResponseWriter().Header()
		header.Set("X-Robots-Tag", "noindex, nofollow, noarchive, nosnippet")
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("Referrer-Policy", "same-origin")

		if c.Request().Method == http.MethodGet || c.Request().Method == http.MethodHead {
			header.Set("Cache-Control", "no-store, max-age=0")
			header.Set("Pragma", "no-cache")
			header.Set("Expires", "0")
		}

		c.Next()
	}
}

// LimitRequestBody caps the request body so an oversized upload fails while
// the multipart form is parsed instead of filling memory or disk.
func LimitRequestBody(maxBytes int64) flamego.Handler {
	return func(c flamego.Context) {
		if maxBytes > 0 && c.Request().Request.Body != nil {
			c.Request().Request.Body = http.MaxBytesReader(c.ResponseWriter(), c.Request().Request.Body, maxBytes)
		}

		c.Next()
	}
}
